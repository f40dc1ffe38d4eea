package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-krb5/krb5/client"
	"github.com/go-krb5/krb5/config"
	"github.com/go-krb5/krb5/credentials"
	"github.com/go-krb5/krb5/keytab"
	"github.com/go-krb5/krb5/spnego"
)

// DefaultKrb5ConfPath is read when neither KerberosProviderConfig nor
// KRB5_CONFIG names a krb5.conf.
const DefaultKrb5ConfPath = "/etc/krb5.conf"

// KerberosProviderConfig configures the Kerberos SecurityProvider.
// Credentials are taken from the first of KeytabPath, CCachePath and
// Credentials that is set.
type KerberosProviderConfig struct {
	// TargetSPN is the service principal, normally HTTP/<host>.
	TargetSPN string

	// Realm is the Kerberos realm (e.g. EXAMPLE.COM).
	Realm string

	Krb5ConfPath string
	KeytabPath   string
	CCachePath   string
	Credentials  *Credentials
}

// KerberosProvider implements SecurityProvider with the pure Go
// github.com/go-krb5/krb5 library. Every Step(nil) produces a fresh
// SPNEGO token, so one provider can authenticate many requests.
type KerberosProvider struct {
	client    *client.Client
	targetSPN string

	loginOnce sync.Once
	loginErr  error
	complete  bool
}

// NewKerberosProvider creates a Kerberos provider from cfg.
func NewKerberosProvider(cfg KerberosProviderConfig) (*KerberosProvider, error) {
	if cfg.TargetSPN == "" {
		return nil, errors.New("kerberos: target SPN is required")
	}
	confPath := cfg.Krb5ConfPath
	if confPath == "" {
		confPath = os.Getenv("KRB5_CONFIG")
	}
	if confPath == "" {
		confPath = DefaultKrb5ConfPath
	}
	conf, err := config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("load krb5.conf from %s: %w", confPath, err)
	}

	var cl *client.Client
	switch {
	case cfg.KeytabPath != "":
		if cfg.Credentials == nil || cfg.Credentials.Username == "" {
			return nil, errors.New("kerberos: keytab login needs a username")
		}
		kt, err := keytab.Load(cfg.KeytabPath)
		if err != nil {
			return nil, fmt.Errorf("load keytab from %s: %w", cfg.KeytabPath, err)
		}
		cl = client.NewWithKeytab(cfg.Credentials.Username, cfg.Realm, kt, conf, client.DisablePAFXFAST(true))
	case cfg.CCachePath != "":
		cc, err := credentials.LoadCCache(cfg.CCachePath)
		if err != nil {
			return nil, fmt.Errorf("load ccache from %s: %w", cfg.CCachePath, err)
		}
		cl, err = client.NewFromCCache(cc, conf, client.DisablePAFXFAST(true))
		if err != nil {
			return nil, fmt.Errorf("create client from ccache: %w", err)
		}
	case cfg.Credentials != nil:
		cl = client.NewWithPassword(
			cfg.Credentials.Username,
			cfg.Realm,
			cfg.Credentials.Password,
			conf,
			client.DisablePAFXFAST(true),
		)
	default:
		return nil, errors.New("kerberos: no credentials provided (keytab, ccache, or password required)")
	}

	return &KerberosProvider{
		client:    cl,
		targetSPN: cfg.TargetSPN,
	}, nil
}

// Step returns a new SPNEGO NegTokenInit when inputToken is empty. A
// server token after the initial one is the mutual authentication reply,
// which ends the exchange.
func (p *KerberosProvider) Step(_ context.Context, inputToken []byte) ([]byte, bool, error) {
	p.loginOnce.Do(func() {
		p.loginErr = p.client.Login()
	})
	if p.loginErr != nil {
		return nil, false, fmt.Errorf("kerberos login: %w", p.loginErr)
	}

	if len(inputToken) > 0 {
		if !p.complete {
			return nil, false, errors.New("kerberos: server token received before the initial token was sent")
		}
		return nil, false, nil
	}

	tkn, err := spnego.SPNEGOClient(p.client, p.targetSPN).InitSecContext()
	if err != nil {
		return nil, false, fmt.Errorf("init security context for %s: %w", p.targetSPN, err)
	}
	token, err := tkn.Marshal()
	if err != nil {
		return nil, false, fmt.Errorf("marshal token: %w", err)
	}
	p.complete = true
	return token, false, nil
}

// Complete reports whether a token has been produced.
func (p *KerberosProvider) Complete() bool {
	return p.complete
}

// Close destroys the Kerberos client and its tickets.
func (p *KerberosProvider) Close() error {
	p.client.Destroy()
	return nil
}

// SPNForEndpoint returns the HTTP service principal for host.
func SPNForEndpoint(host string) string {
	return "HTTP/" + host
}

package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type identifyRow struct {
	Host             string   `json:"host" yaml:"host"`
	ProductVendor    string   `json:"product_vendor" yaml:"product_vendor"`
	ProductVersion   string   `json:"product_version" yaml:"product_version"`
	ProtocolVersion  string   `json:"protocol_version" yaml:"protocol_version"`
	SecurityProfiles []string `json:"security_profiles,omitempty" yaml:"security_profiles,omitempty"`
}

func (r identifyRow) cells() []string {
	return []string{r.Host, r.ProductVendor, r.ProductVersion}
}

type configRow struct {
	Host                string `json:"host" yaml:"host"`
	MaxEnvelopeSizeKB   int64  `json:"max_envelope_size_kb" yaml:"max_envelope_size_kb"`
	MaxTimeoutMS        int64  `json:"max_timeout_ms" yaml:"max_timeout_ms"`
	MaxBatchItems       int64  `json:"max_batch_items" yaml:"max_batch_items"`
	MaxProviderRequests int64  `json:"max_provider_requests" yaml:"max_provider_requests"`
}

func (r configRow) cells() []string {
	return []string{
		r.Host,
		strconv.FormatInt(r.MaxEnvelopeSizeKB, 10),
		strconv.FormatInt(r.MaxTimeoutMS, 10),
		strconv.FormatInt(r.MaxBatchItems, 10),
		strconv.FormatInt(r.MaxProviderRequests, 10),
	}
}

type shellRow struct {
	Host        string `json:"host" yaml:"host"`
	ShellID     string `json:"shell_id" yaml:"shell_id"`
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`
	ClientIP    string `json:"client_ip,omitempty" yaml:"client_ip,omitempty"`
	State       string `json:"state,omitempty" yaml:"state,omitempty"`
	IdleTimeOut string `json:"idle_timeout,omitempty" yaml:"idle_timeout,omitempty"`
}

func (r shellRow) cells() []string {
	return []string{r.Host, r.ShellID, r.Owner, r.ClientIP, r.State, r.IdleTimeOut}
}

// collect runs fn on every host and flattens the rows in host order. Rows
// from failed hosts are dropped; the errors are returned after rendering.
func collect[T row](a *app, cmd *cobra.Command, header []string, fn func(ctx context.Context, host string, r Remote) ([]T, error)) error {
	perHost := make([][]T, len(a.targets()))
	err := a.forEachHost(cmd, func(ctx context.Context, i int, host string, r Remote) error {
		rows, err := fn(ctx, host, r)
		if err != nil {
			return err
		}
		perHost[i] = rows
		return nil
	})

	rows := make([]T, 0)
	for _, r := range perHost {
		rows = append(rows, r...)
	}
	if len(rows) > 0 || err == nil {
		if rerr := render(cmd.OutOrStdout(), a.output, header, rows); rerr != nil {
			return rerr
		}
	}
	return err
}

func (a *app) newIdentifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identify",
		Short: "Show the WS-Management service identity of each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := []string{"HOST", "VENDOR", "VERSION"}
			return collect(a, cmd, header, func(ctx context.Context, host string, r Remote) ([]identifyRow, error) {
				id, err := r.Identify(ctx)
				if err != nil {
					return nil, err
				}
				row := identifyRow{
					Host:            host,
					ProductVendor:   id.ProductVendor,
					ProductVersion:  id.ProductVersion,
					ProtocolVersion: id.ProtocolVersion,
				}
				if id.SecurityProfiles != nil {
					row.SecurityProfiles = id.SecurityProfiles.Names
				}
				return []identifyRow{row}, nil
			})
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the WinRM service limits of each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := []string{"HOST", "MAX ENVELOPE KB", "MAX TIMEOUT MS", "MAX BATCH ITEMS", "MAX PROVIDER REQUESTS"}
			return collect(a, cmd, header, func(ctx context.Context, host string, r Remote) ([]configRow, error) {
				cfg, err := r.GetConfig(ctx)
				if err != nil {
					return nil, err
				}
				return []configRow{{
					Host:                host,
					MaxEnvelopeSizeKB:   cfg.MaxEnvelopeSizeKB,
					MaxTimeoutMS:        cfg.MaxTimeoutMS,
					MaxBatchItems:       cfg.MaxBatchItems,
					MaxProviderRequests: cfg.MaxProviderRequests,
				}}, nil
			})
		},
	}
}

func (a *app) newShellsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shells",
		Short: "List the remote shells the user owns on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := []string{"HOST", "SHELL ID", "OWNER", "CLIENT IP", "STATE", "IDLE TIMEOUT"}
			return collect(a, cmd, header, func(ctx context.Context, host string, r Remote) ([]shellRow, error) {
				shells, err := r.EnumerateShells(ctx)
				if err != nil {
					return nil, err
				}
				rows := make([]shellRow, 0, len(shells))
				for _, s := range shells {
					rows = append(rows, shellRow{
						Host:        host,
						ShellID:     s.ShellID,
						Owner:       s.Owner,
						ClientIP:    s.ClientIP,
						State:       s.State,
						IdleTimeOut: strings.TrimSpace(s.IdleTimeOut),
					})
				}
				return rows, nil
			})
		},
	}
}

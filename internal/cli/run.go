package cli

import (
	"bytes"
	"context"
	"strings"

	"github.com/spf13/cobra"
)

type hostOutput struct {
	host   string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (a *app) newRunCmd() *cobra.Command {
	var viaCmd bool

	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run a command on each host",
		Long: `Run opens a shell on each host, runs the command, waits for it to exit
and closes the shell. With one host output is streamed as it arrives and the
command's exit code becomes winrm's exit code. With several hosts each line is
prefixed with [host] and printed once the host finishes.`,
		Example: `  winrm run -H web01 -u 'CORP\ops' -- ipconfig /all
  winrm run -H web01,web02 --cmd -- "dir C:\inetpub\logs | find /c /v """`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, cmdArgs := args[0], args[1:]
			if viaCmd {
				command, cmdArgs = "cmd.exe", []string{"/c", strings.Join(args, " ")}
			}

			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			hosts := a.targets()
			multi := len(hosts) > 1
			outputs := make([]*hostOutput, len(hosts))

			err := a.forEachHost(cmd, func(ctx context.Context, i int, host string, r Remote) error {
				out, errOut := stdout, stderr
				if multi {
					outputs[i] = &hostOutput{host: host}
					out, errOut = &outputs[i].stdout, &outputs[i].stderr
				}
				result, err := r.ExecuteStream(ctx, out, errOut, command, cmdArgs...)
				if err != nil {
					return err
				}
				if result.ExitCode != 0 {
					return &ExitError{Host: host, Code: result.ExitCode}
				}
				return nil
			})

			for _, o := range outputs {
				if o == nil {
					continue
				}
				prefixLines(stdout, o.host, o.stdout.String())
				prefixLines(stderr, o.host, o.stderr.String())
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&viaCmd, "cmd", false, "run the arguments as one command line through cmd.exe /c")
	cmd.Flags().DurationVar(&a.commandTimeout, "command-timeout", 0, "give up on a command that runs longer than this")
	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wamsg/internal/app"
	"wamsg/internal/config"
	"wamsg/internal/dispatch"
	"wamsg/internal/storage"
)

// EnvConfig names the config file when --config is not given.
const EnvConfig = "WAMSG_CONFIG"

// Version is set at build time with -ldflags "-X wamsg/internal/cli.Version=...".
var Version = "dev"

// deps are injected by tests; zero values mean the real thing.
type deps struct {
	kv     storage.KV
	opener dispatch.Opener
	stdin  io.Reader
	noEnv  bool
}

type rootState struct {
	deps

	configPath string
	logLevel   string
}

// Execute runs the wamsg command tree.
func Execute(ctx context.Context) error {
	return newRootCmd(deps{}).ExecuteContext(ctx)
}

func newRootCmd(d deps) *cobra.Command {
	st := &rootState{deps: d}
	if st.stdin == nil {
		st.stdin = os.Stdin
	}

	root := &cobra.Command{
		Use:           "wamsg",
		Short:         "Manage message templates and open pre-filled WhatsApp chats",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if st.noEnv {
				return nil
			}
			// .env is optional; a malformed one is an error
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "config file (default $"+EnvConfig+" or "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "override logging.level (trace|debug|info|warn|error)")

	root.AddCommand(
		templateCmd(st),
		sendCmd(st),
		serveCmd(st),
		versionCmd(),
	)
	return root
}

func (st *rootState) resolveConfigPath() string {
	if p := strings.TrimSpace(st.configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	return config.DefaultPath()
}

// open builds the app for one command. The caller closes it.
func (st *rootState) open(cmd *cobra.Command, o app.Options) (*app.App, error) {
	o.ConfigPath = st.resolveConfigPath()
	o.LogLevel = st.logLevel
	if o.Out == nil {
		o.Out = cmd.OutOrStdout()
	}
	if o.KV == nil {
		o.KV = st.kv
	}
	if o.OpenerImpl == nil {
		o.OpenerImpl = st.opener
	}
	return app.New(cmd.Context(), o)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "wamsg "+Version)
		},
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"wamsg/internal/app"
)

func serveCmd(st *rootState) *cobra.Command {
	var openerKind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run configured schedules and follow config changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd, app.Options{Opener: openerKind})
			if err != nil {
				return err
			}
			defer a.Close()
			stop := printNotices(a.Bus(), cmd.ErrOrStderr(), serveNoticeBuffer)
			defer stop()
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&openerKind, "opener", "", "override dispatch.opener for scheduled runs")
	return cmd
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wamsg/internal/app"
	"wamsg/internal/dispatch"
)

func sendCmd(st *rootState) *cobra.Command {
	var (
		mode         string
		to           []string
		contactsFile string
		delay        string
		openerKind   string
	)
	cmd := &cobra.Command{
		Use:   "send <id|name>",
		Short: "Open a pre-filled chat for one contact (single) or each contact in turn (bulk)",
		Example: `  wamsg send Welcome --to "+1 555 0100"
  wamsg send Promo --mode bulk --contacts-file contacts.txt
  cat contacts.txt | wamsg send Promo --mode bulk --contacts-file - --opener stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m dispatch.Mode
			if cmd.Flags().Changed("mode") {
				pm, err := dispatch.ParseMode(mode)
				if err != nil {
					return err
				}
				m = pm
			}

			lines := append([]string(nil), to...)
			if contactsFile != "" {
				b, err := readInput(st.stdin, contactsFile)
				if err != nil {
					return fmt.Errorf("contacts file: %w", err)
				}
				lines = append(lines, string(b))
			}

			a, err := st.open(cmd, app.Options{Opener: openerKind, Delay: delay})
			if err != nil {
				return err
			}
			defer a.Close()

			contacts := strings.Join(lines, "\n")
			// one progress line per contact
			buffer := noticeBuffer + len(dispatch.NormalizeContacts(contacts))
			stop := printNotices(a.Bus(), cmd.ErrOrStderr(), buffer)
			_, err = a.Send(cmd.Context(), args[0], contacts, m)
			stop()
			return err
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "single | bulk (default dispatch.mode from config)")
	cmd.Flags().StringArrayVar(&to, "to", nil, "phone number; repeat for several")
	cmd.Flags().StringVar(&contactsFile, "contacts-file", "", "file with one phone number per line (- for stdin)")
	cmd.Flags().StringVar(&delay, "delay", "", "pause between bulk opens, e.g. 2s; negative disables")
	cmd.Flags().StringVar(&openerKind, "opener", "", "browser | stdout | telegram (default dispatch.opener from config)")
	return cmd
}

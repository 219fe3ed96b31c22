package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"wamsg/internal/template"
)

func templateCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tpl", "t"},
		Short:   "Create, edit, delete and list message templates",
	}
	cmd.AddCommand(
		templateCreateCmd(st),
		templateUpdateCmd(st),
		templateDeleteCmd(st),
		templateListCmd(st),
		templateShowCmd(st),
	)
	return cmd
}

// messageInput reads --message or --message-file ("-" is stdin).
func messageInput(st *rootState, msg, file string, msgSet bool) (string, bool, error) {
	if msgSet && file != "" {
		return "", false, fmt.Errorf("--message and --message-file are mutually exclusive")
	}
	if file == "" {
		return msg, msgSet, nil
	}
	b, err := readInput(st.stdin, file)
	if err != nil {
		return "", false, fmt.Errorf("message file: %w", err)
	}
	return string(b), true, nil
}

func templateCreateCmd(st *rootState) *cobra.Command {
	var name, message, messageFile string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a template",
		Example: `  wamsg template create --name Welcome --message "Hi! Thanks for reaching out."
  generate-promo | wamsg template create --name Promo --message-file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, _, err := messageInput(st, message, messageFile, cmd.Flags().Changed("message"))
			if err != nil {
				return err
			}
			a, err := st.open(cmd, appOptionsNone)
			if err != nil {
				return err
			}
			defer a.Close()
			stop := printNotices(a.Bus(), cmd.ErrOrStderr(), noticeBuffer)
			t, err := a.Store().Create(cmd.Context(), name, msg)
			stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "template name")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message body")
	cmd.Flags().StringVarP(&messageFile, "message-file", "f", "", "read the message body from a file (- for stdin)")
	return cmd
}

func templateUpdateCmd(st *rootState) *cobra.Command {
	var name, message, messageFile string
	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Update a template; omitted fields keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, msgSet, err := messageInput(st, message, messageFile, cmd.Flags().Changed("message"))
			if err != nil {
				return err
			}
			a, err := st.open(cmd, appOptionsNone)
			if err != nil {
				return err
			}
			defer a.Close()
			cur, err := a.Store().Resolve(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = cur.Name
			}
			if !msgSet {
				msg = cur.Message
			}
			stop := printNotices(a.Bus(), cmd.ErrOrStderr(), noticeBuffer)
			_, err = a.Store().Update(cmd.Context(), cur.ID, name, msg)
			stop()
			return err
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&message, "message", "m", "", "new message body")
	cmd.Flags().StringVarP(&messageFile, "message-file", "f", "", "read the new message body from a file (- for stdin)")
	return cmd
}

func templateDeleteCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd, appOptionsNone)
			if err != nil {
				return err
			}
			defer a.Close()
			id := args[0]
			// names resolve; an unknown ref is deleted as an id, which is a no-op
			if t, err := a.Store().Resolve(args[0]); err == nil {
				id = t.ID
			}
			stop := printNotices(a.Bus(), cmd.ErrOrStderr(), noticeBuffer)
			err = a.Store().Delete(cmd.Context(), id)
			stop()
			return err
		},
	}
}

func templateListCmd(st *rootState) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd, appOptionsNone)
			if err != nil {
				return err
			}
			defer a.Close()
			items := a.Store().List()
			if plain {
				writePlainList(cmd.OutOrStdout(), items)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderList(items, nowFunc()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "tab-separated output for scripts")
	return cmd
}

func templateShowCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show one template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd, appOptionsNone)
			if err != nil {
				return err
			}
			defer a.Close()
			t, err := a.Store().Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTemplate(t, nowFunc()))
			return nil
		},
	}
}

func writePlainList(w io.Writer, items []template.Template) {
	for _, t := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, strings.ReplaceAll(t.Message, "\n", `\n`))
	}
}

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/geocoder89/notehub/internal/client"
	"github.com/spf13/cobra"
)

func notesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
	}

	cmd.AddCommand(
		listNotesCmd(a),
		getNoteCmd(a),
		createNoteCmd(a),
		updateNoteCmd(a),
		deleteNoteCmd(a),
		searchNotesCmd(a),
	)

	return cmd
}

func listNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := a.client.ListNotes(cmd.Context())
			if err != nil {
				return err
			}
			return renderNotes(cmd.OutOrStdout(), a.output, notes)
		},
	}
}

func getNoteCmd(a *app) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.client.GetNote(cmd.Context(), id)
			if err != nil {
				return err
			}
			return renderNote(cmd.OutOrStdout(), a.output, n, markdown)
		},
	}

	cmd.Flags().BoolVar(&markdown, "render", false, "render the body as markdown")

	return cmd
}

func createNoteCmd(a *app) *cobra.Command {
	var title, content string
	var tags []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" || content == "" {
				return errors.New("--title and --content are required")
			}
			n, err := a.client.CreateNote(cmd.Context(), title, content, tags)
			if err != nil {
				return err
			}
			return renderNote(cmd.OutOrStdout(), a.output, n, false)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&content, "content", "", "note body")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable or comma separated")

	return cmd
}

func updateNoteCmd(a *app) *cobra.Command {
	var title, content string
	var tags []string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var in client.NoteInput
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("content") {
				in.Content = &content
			}
			if cmd.Flags().Changed("tag") {
				if tags == nil {
					tags = []string{}
				}
				in.Tags = &tags
			}
			if in.Title == nil && in.Content == nil && in.Tags == nil {
				return errors.New("nothing to update, pass --title, --content or --tag")
			}

			n, err := a.client.UpdateNote(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return renderNote(cmd.OutOrStdout(), a.output, n, false)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replacement tags; pass --tag= to clear")

	return cmd
}

func deleteNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteNote(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Deleted note %d.", id)))
			return nil
		},
	}
}

func searchNotesCmd(a *app) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search notes by keyword and/or exact tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keyword string
			if len(args) == 1 {
				keyword = args[0]
			}
			if keyword == "" && tag == "" {
				return errors.New("pass a keyword, --tag, or both")
			}

			notes, err := a.client.SearchNotes(cmd.Context(), keyword, tag)
			if err != nil {
				return err
			}
			return renderNotes(cmd.OutOrStdout(), a.output, notes)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "exact tag to match")

	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}

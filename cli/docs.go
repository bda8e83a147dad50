package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ai_content_agents/docstore"
)

var errEmptySection = errors.New("section content is empty")

func newDocsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage stored documentation sections",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <owner> <repo>",
			Short: "List the sections of a repository",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDocs(a, func(store *docstore.Store) error {
					sections, err := store.List(cmd.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					for _, s := range sections {
						fmt.Fprintf(a.stdout, "%s\t%s\n", s.Section, s.UpdatedAt.Format("2006-01-02 15:04"))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <owner> <repo> <section>",
			Short: "Print one section",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDocs(a, func(store *docstore.Store) error {
					s, err := store.Get(cmd.Context(), keyFromArgs(args))
					if err != nil {
						return err
					}
					fmt.Fprintln(a.stdout, s.Content)
					return nil
				})
			},
		},
		newDocsPutCmd(a),
		&cobra.Command{
			Use:   "delete <owner> <repo> <section>",
			Short: "Delete one section",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDocs(a, func(store *docstore.Store) error {
					return store.Delete(cmd.Context(), keyFromArgs(args))
				})
			},
		},
	)
	return cmd
}

func newDocsPutCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "put <owner> <repo> <section>",
		Short: "Store a section read from --file or stdin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(a.in)
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(data)) == "" {
				return errEmptySection
			}
			return withDocs(a, func(store *docstore.Store) error {
				s, err := store.Upsert(cmd.Context(), keyFromArgs(args), string(data))
				if err != nil {
					return err
				}
				a.log.WithField("section", s.Key.String()).Info("documentation section stored")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the section from a file")
	return cmd
}

func withDocs(a *app, fn func(*docstore.Store) error) error {
	store, err := a.openDocs()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func keyFromArgs(args []string) docstore.Key {
	return docstore.Key{Owner: args[0], Repo: args[1], Section: args[2]}
}

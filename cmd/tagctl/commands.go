package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tagsync/internal/apierr"
	"tagsync/internal/model"
	"tagsync/internal/tagcontainer"
	"tagsync/internal/version"
)

var (
	okMark   = color.New(color.FgHiGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	dim      = color.New(color.FgHiBlack)
	blockTag = color.New(color.FgYellow)
)

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags <page|template> <id>",
		Short: "List the tags of a page or template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerArg(args)
			if err != nil {
				return err
			}
			if err := c.Load(cmd.Context()); err != nil {
				return err
			}

			tags := c.Tags()
			if len(tags) == 0 {
				fmt.Printf("%s has no tags\n", c)
				return nil
			}
			fmt.Printf("%s %q has %d tag(s):\n\n", c, c.Name(), len(tags))
			for _, name := range c.TagNames() {
				printTag(tags[name])
			}
			return nil
		},
	}
}

func printTag(t model.Tag) {
	state := ""
	if !t.Active {
		state = dim.Sprint(" [inactive]")
	}
	fmt.Printf("%-20s %s%s\n", t.Name, dim.Sprintf("id=%d construct=%d", t.ID, t.ConstructID), state)
}

func createCmd() *cobra.Command {
	var opts tagcontainer.CreateOptions

	cmd := &cobra.Command{
		Use:   "create <page|template> <id> [keyword|constructId]",
		Short: "Create a tag from a construct or by copying one",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerArg(args)
			if err != nil {
				return err
			}
			if len(args) == 3 {
				if id, err := strconv.Atoi(args[2]); err == nil {
					opts.ConstructID = id
				} else {
					opts.Keyword = args[2]
				}
			}

			tag, err := c.CreateTag(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := tag.Wait(cmd.Context()); err != nil {
				fmt.Printf("%s Tag not created\n", failMark)
				return explain(err)
			}

			data, err := tag.Data(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s Created tag %s (id %s)\n", okMark, data.Name, tag.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.MagicValue, "magic", "", "initial value of the main part")
	cmd.Flags().IntVar(&opts.SourcePageID, "copy-page", 0, "page to copy the tag from")
	cmd.Flags().StringVar(&opts.SourceTagname, "copy-tag", "", "name of the tag to copy")
	return cmd
}

func createBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-batch <page|template> <id> key=spec...",
		Short: "Create several tags in one request",
		Long: `Each spec is a construct keyword, a construct id, or
copy:<pageId>:<tagname>.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerArg(args)
			if err != nil {
				return err
			}
			reqs := make(map[string]tagcontainer.CreateRequest, len(args)-2)
			for _, arg := range args[2:] {
				key, spec, ok := strings.Cut(arg, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid entry %q, want key=spec", arg)
				}
				req, err := parseSpec(spec)
				if err != nil {
					return err
				}
				reqs[key] = req
			}

			batch, err := c.CreateTags(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			batchErr := batch.Wait(cmd.Context())

			for _, key := range batch.Keys() {
				e := batch.Entries[key]
				if e.Tag.State() == tagcontainer.StateRealized {
					fmt.Printf("%s %-12s %s\n", okMark, key, e.Tag.Name())
				} else {
					fmt.Printf("%s %-12s %v\n", failMark, key, e.Tag.Err())
				}
			}
			return explain(batchErr)
		},
	}
}

func parseSpec(spec string) (tagcontainer.CreateRequest, error) {
	if rest, ok := strings.CutPrefix(spec, "copy:"); ok {
		page, tagname, ok := strings.Cut(rest, ":")
		pageID, err := strconv.Atoi(page)
		if !ok || err != nil || tagname == "" {
			return nil, fmt.Errorf("invalid copy spec %q, want copy:<pageId>:<tagname>", spec)
		}
		return tagcontainer.CopyRequest{SourcePageID: pageID, SourceTagname: tagname}, nil
	}
	if id, err := strconv.Atoi(spec); err == nil {
		return tagcontainer.ConstructIDRequest{ConstructID: id}, nil
	}
	if spec == "" {
		return nil, errors.New("empty spec")
	}
	return tagcontainer.KeywordRequest{Keyword: spec}, nil
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <page|template> <id>",
		Short: "Reload the tags of a page or template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerArg(args)
			if err != nil {
				return err
			}
			if err := c.SyncTags(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s Synchronized %d tag(s) of %s\n", okMark, len(c.Tags()), c)
			return nil
		},
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <page|template> <id> <tagname> <part> <value>",
		Short: "Set a text part of a tag and save",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerArg(args)
			if err != nil {
				return err
			}
			if err := c.Load(cmd.Context()); err != nil {
				return err
			}
			tag, ok := c.Tag(args[2])
			if !ok {
				return fmt.Errorf("%s has no tag %q", c, args[2])
			}
			prop := model.Property{Type: "RICHTEXT", StringValue: args[4]}
			if err := tag.SetProperty(cmd.Context(), args[3], prop); err != nil {
				return err
			}
			if err := c.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s Saved %s.%s\n", okMark, args[2], args[3])
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page|template> <id> <tagname>...",
		Short: "Delete tags and save",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerArg(args)
			if err != nil {
				return err
			}
			if err := c.Load(cmd.Context()); err != nil {
				return err
			}
			for _, name := range args[2:] {
				tag, ok := c.Tag(name)
				if !ok {
					return fmt.Errorf("%s has no tag %q", c, name)
				}
				if err := tag.Remove(cmd.Context()); err != nil {
					return err
				}
			}
			if err := c.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s Deleted %s\n", okMark, strings.Join(args[2:], ", "))
			return nil
		},
	}
}

func renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <pageId>",
		Short: "Render a page and list its blocks and editables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid page id %q", args[0])
			}
			rendered, err := session.Page(id).Render(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Blocks (%d):\n", len(rendered.Blocks))
			for _, b := range rendered.Blocks {
				fmt.Printf("  %s %s\n", blockTag.Sprint(b.TagName), dim.Sprint(b.Element))
			}
			fmt.Printf("\nEditables (%d):\n", len(rendered.Editables))
			for _, e := range rendered.Editables {
				fmt.Printf("  %s.%s %s\n", e.TagName, e.PartName, dim.Sprint(e.Element))
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetInfo().String())
		},
	}
}

// explain adds the available constructs to a keyword miss.
func explain(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && apiErr.Kind == apierr.ConstructNotFound {
		keywords := make([]string, 0, len(apiErr.Constructs))
		for k, c := range apiErr.Constructs {
			keywords = append(keywords, fmt.Sprintf("%s (%d)", k, c.ID))
		}
		sort.Strings(keywords)
		return fmt.Errorf("%w\navailable constructs:\n  %s", err, strings.Join(keywords, "\n  "))
	}
	return err
}

package main

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Add an item to the clipboard history",
	Long: `Add stores content as a new item. Without an argument the content is
read from stdin. Adding content identical to a live item refreshes it instead.`,
	Example: `  clipboard-sync add "meeting at 3pm" --tag work
  pbpaste | clipboard-sync add --name "snippet"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, pinned first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var pinCmd = &cobra.Command{
	Use:   "pin <id>",
	Short: "Pin or unpin an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runPin,
}

var trashCmd = &cobra.Command{
	Use:   "trash [id]",
	Short: "Move an item to the trash, restore it, or empty the trash",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTrash,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack(nil)
		if err != nil {
			return err
		}
		if err := s.svc.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <id>",
	Short: "Share an item by link, show its link, or revoke it",
	Args:  cobra.ExactArgs(1),
	RunE:  runShare,
}

func init() {
	addCmd.Flags().String("type", "", "item type (text, link, image, file); detected when empty")
	addCmd.Flags().String("name", "", "display name")
	addCmd.Flags().String("filename", "", "original file name")
	addCmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")

	listCmd.Flags().Int("limit", 20, "maximum number of items")
	listCmd.Flags().Int("offset", 0, "items to skip")
	listCmd.Flags().String("type", "", "only items of this type")
	listCmd.Flags().StringSlice("tag", nil, "only items carrying every tag")
	listCmd.Flags().Bool("pinned", false, "only pinned items")
	listCmd.Flags().Bool("trash", false, "list the trash")
	listCmd.Flags().String("search", "", "full-text query")
	listCmd.Flags().Bool("json", false, "print JSON")

	pinCmd.Flags().Bool("unpin", false, "remove the pin")

	trashCmd.Flags().Bool("restore", false, "restore the item from the trash")
	trashCmd.Flags().Bool("empty", false, "permanently delete everything in the trash")

	shareCmd.Flags().String("permission", types.PermissionReadOnly, "read-only or read-write")
	shareCmd.Flags().Bool("show", false, "print the existing share without creating one")
	shareCmd.Flags().Bool("revoke", false, "remove the share")
}

func runAdd(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) == 1 {
		content = args[0]
	} else {
		data, err := readInput(cmd.InOrStdin())
		if err != nil {
			return err
		}
		content = string(data)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("nothing to add: pass content or pipe it on stdin")
	}

	itemType, _ := cmd.Flags().GetString("type")
	name, _ := cmd.Flags().GetString("name")
	filename, _ := cmd.Flags().GetString("filename")
	tags, _ := cmd.Flags().GetStringSlice("tag")

	s, err := openStack(nil)
	if err != nil {
		return err
	}
	item, err := s.svc.Copy(cmd.Context(), types.Item{
		Content:     content,
		Type:        itemType,
		DisplayName: name,
		Filename:    filename,
		Tags:        tags,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", item.ID, item.Type)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	itemType, _ := cmd.Flags().GetString("type")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	pinnedOnly, _ := cmd.Flags().GetBool("pinned")
	trash, _ := cmd.Flags().GetBool("trash")
	query, _ := cmd.Flags().GetString("search")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openStack(nil)
	if err != nil {
		return err
	}

	var items []*types.Item
	if query != "" {
		results, err := s.svc.Search(cmd.Context(), storage.SearchOptions{
			Query:          query,
			Type:           itemType,
			Tags:           tags,
			IncludeTrashed: trash,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		for _, r := range results {
			items = append(items, r.Item)
		}
	} else {
		filter := storage.ListFilter{
			Type:    itemType,
			Tags:    tags,
			Trashed: trash,
			Limit:   limit,
			Offset:  offset,
		}
		if pinnedOnly {
			filter.Pinned = &pinnedOnly
		}
		items, err = s.svc.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), items)
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPIN\tCOPIED\tTITLE")
	for _, item := range items {
		pin := ""
		if item.Pinned {
			pin = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.Type, pin,
			item.Timestamp.Local().Format("2006-01-02 15:04"),
			types.Truncate(item.Title(), 60))
	}
	return w.Flush()
}

func runPin(cmd *cobra.Command, args []string) error {
	unpin, _ := cmd.Flags().GetBool("unpin")

	s, err := openStack(nil)
	if err != nil {
		return err
	}
	if unpin {
		if _, err := s.svc.Unpin(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", args[0])
		return nil
	}
	if _, err := s.svc.Pin(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", args[0])
	return nil
}

func runTrash(cmd *cobra.Command, args []string) error {
	restore, _ := cmd.Flags().GetBool("restore")
	empty, _ := cmd.Flags().GetBool("empty")

	if empty == (len(args) == 1) {
		return fmt.Errorf("pass an item id, or --empty without one")
	}

	s, err := openStack(nil)
	if err != nil {
		return err
	}
	if empty {
		n, err := s.svc.EmptyTrash(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d trashed items\n", n)
		return nil
	}
	if restore {
		if err := s.svc.Restore(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
		return nil
	}
	if err := s.svc.Trash(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Trashed %s\n", args[0])
	return nil
}

func runShare(cmd *cobra.Command, args []string) error {
	permission, _ := cmd.Flags().GetString("permission")
	show, _ := cmd.Flags().GetBool("show")
	revoke, _ := cmd.Flags().GetBool("revoke")

	s, err := openStack(nil)
	if err != nil {
		return err
	}
	id := args[0]

	switch {
	case revoke:
		if err := s.svc.DeleteShare(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Share for %s revoked\n", id)
		return nil
	case show:
		share, err := s.svc.FetchShare(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", share.URL(cfg.BaseURL), share.Permission)
		return nil
	}

	share, err := s.svc.CreateShare(cmd.Context(), id, permission)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", share.URL(cfg.BaseURL), share.Permission)
	return nil
}

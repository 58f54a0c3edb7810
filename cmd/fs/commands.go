package fs

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/spf13/cobra"
)

// clientName identifies this CLI process as a lease holder
func clientName() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("dfs-cli-%s-%d", host, os.Getpid())
}

func parsePerm(arg string) (meta.Permission, error) {
	bits, err := strconv.ParseUint(arg, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("mode must be octal (e.g. 755): %w", err)
	}
	return meta.Permission(bits), nil
}

func formatTime(millis int64) string {
	if millis == 0 {
		return "-"
	}
	return time.UnixMilli(millis).Format("2006-01-02 15:04")
}

var (
	mkdirCmd = &cobra.Command{
		Use:   "mkdir [path]",
		Short: "Creates a directory (with parents)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := metaClient.Mkdirs(args[0], meta.DefaultDirPerm, true)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("could not create %s", args[0])
			}
			fmt.Println("created", args[0])
			return nil
		},
	}

	touchCmd = &cobra.Command{
		Use:   "touch [path]",
		Short: "Creates an empty file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder := clientName()
			status, err := metaClient.Create(args[0], 0, holder, meta.FlagCreate, true, 0, 0)
			if err != nil {
				return err
			}
			if _, err := metaClient.Complete(args[0], holder, nil, status.FileID); err != nil {
				return err
			}
			fmt.Println("created", args[0])
			return nil
		},
	}

	lsCmd = &cobra.Command{
		Use:   "ls [path]",
		Short: "Lists the contents of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := metaClient.GetListing(args[0], "", false)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, st := range listing {
				kind := "-"
				if st.IsDir {
					kind = "d"
				}
				fmt.Fprintf(w, "%s%o\t%s\t%s\t%d\t%s\t%s\n",
					kind, st.Permission, st.Owner, st.Group, st.Length,
					formatTime(st.ModificationTime), st.Path)
			}
			return w.Flush()
		},
	}

	statCmd = &cobra.Command{
		Use:   "stat [path]",
		Short: "Prints the status of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := metaClient.GetFileInfo(args[0])
			if err != nil {
				return err
			}
			if status == nil {
				return fmt.Errorf("%s does not exist", args[0])
			}
			fmt.Printf("path=%s dir=%v length=%d replication=%d blocksize=%d perm=%o owner=%s group=%s mtime=%s\n",
				status.Path, status.IsDir, status.Length, status.Replication,
				status.BlockSize, status.Permission, status.Owner, status.Group,
				formatTime(status.ModificationTime))
			return nil
		},
	}

	locateCmd = &cobra.Command{
		Use:   "locate [path]",
		Short: "Prints the block locations of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			located, err := metaClient.GetBlockLocations(args[0], 0, 1<<62)
			if err != nil {
				return err
			}
			fmt.Printf("length=%d blocks=%d underConstruction=%v\n",
				located.FileLength, len(located.Blocks), located.UnderConstruction)
			for i, blk := range located.Blocks {
				fmt.Printf("  block %d: id=%d gen=%d bytes=%d replicas=%d\n",
					i, blk.Block.BlockID, blk.Block.GenerationStamp,
					blk.Block.NumBytes, len(blk.Locations))
			}
			return nil
		},
	}

	mvCmd = &cobra.Command{
		Use:   "mv [src] [dst]",
		Short: "Renames a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := metaClient.Rename(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cannot rename %s to %s", args[0], args[1])
			}
			fmt.Printf("renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}

	rmCmd = &cobra.Command{
		Use:   "rm [path]",
		Short: "Deletes a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recursive, _ := cmd.Flags().GetBool("recursive")
			ok, err := metaClient.Delete(args[0], recursive)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s does not exist", args[0])
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}

	chmodCmd = &cobra.Command{
		Use:   "chmod [mode] [path]",
		Short: "Changes the permission of a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := parsePerm(args[0])
			if err != nil {
				return err
			}
			if err := metaClient.SetPermission(args[1], perm); err != nil {
				return err
			}
			fmt.Printf("changed %s to %o\n", args[1], perm)
			return nil
		},
	}

	chownCmd = &cobra.Command{
		Use:   "chown [owner[:group]] [path]",
		Short: "Changes owner and group of a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, group := args[0], ""
			for i := range owner {
				if owner[i] == ':' {
					owner, group = owner[:i], owner[i+1:]
					break
				}
			}
			if err := metaClient.SetOwner(args[1], owner, group); err != nil {
				return err
			}
			fmt.Println("changed owner of", args[1])
			return nil
		},
	}

	truncateCmd = &cobra.Command{
		Use:   "truncate [path] [size]",
		Short: "Truncates a file to the given size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("size must be a number: %w", err)
			}
			ok, err := metaClient.Truncate(args[0], size, clientName())
			if err != nil {
				return err
			}
			fmt.Printf("truncated %s to %d bytes (in place: %v)\n", args[0], size, ok)
			return nil
		},
	}

	dfCmd = &cobra.Command{
		Use:   "df",
		Short: "Prints filesystem statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := metaClient.GetFsStats()
			if err != nil {
				return err
			}
			fmt.Printf("capacity=%d used=%d remaining=%d files=%d blocks=%d datanodes=%d\n",
				stats.Capacity, stats.Used, stats.Remaining,
				stats.TotalFiles, stats.TotalBlocks, stats.ActiveDatanodes)
			return nil
		},
	}
)

func init() {
	rmCmd.Flags().BoolP("recursive", "r", false, "Delete directories and their contents recursively")
}

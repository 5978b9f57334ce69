package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core/course"
)

func (cli *commandLine) courseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Register and list courses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Register a new course",
		Args:  cobra.ExactArgs(1),
		RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
			crs, err := gw.CreateCourse(ctx, course.NewCourse{Name: args[0]})
			if err != nil {
				return err
			}
			cli.success("course %q created: %s", crs.Name, crs.ID)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered courses",
		Args:  cobra.NoArgs,
		RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, _ []string) error {
			courses, err := gw.QueryCourses(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, crs := range courses {
				fmt.Fprintf(w, "%s\t%s\t%s\n", crs.ID, crs.Name, crs.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		}),
	})

	return cmd
}

func (cli *commandLine) treeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree COURSE_ID",
		Short: "Print the outline of a course",
		Args:  cobra.ExactArgs(1),
	}
	asJSON := cmd.Flags().Bool("json", false, "print the tree envelope as JSON")

	cmd.RunE = cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
		resp, err := gw.ListTree(ctx, args[0])
		if err != nil {
			return err
		}
		if *asJSON {
			enc := json.NewEncoder(cli.out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		cli.printTree(resp)
		return nil
	})
	return cmd
}

func (cli *commandLine) printTree(resp gateway.TreeResponse) {
	fmt.Fprintln(cli.out, color.New(color.Bold).Sprint(resp.CourseID))
	if len(resp.Sections) == 0 {
		fmt.Fprintln(cli.out, color.HiBlackString("  (empty)"))
		return
	}
	for _, sec := range resp.Sections {
		fmt.Fprintf(cli.out, "  %d. %s %s\n", sec.Position, sec.Name, color.HiBlackString(sec.ID))
		for _, act := range sec.Activities {
			fmt.Fprintf(cli.out, "     - [%s] %s %s\n", color.CyanString(string(act.Type)), act.Title, color.HiBlackString(act.ID))
		}
	}
}

func (cli *commandLine) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify COURSE_ID",
		Short: "Check the stored outline of a course against its invariants",
		Args:  cobra.ExactArgs(1),
		RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
			violations, err := gw.Verify(ctx, args[0])
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				cli.success("course %s is consistent", args[0])
				return nil
			}
			for _, v := range violations {
				fmt.Fprintf(cli.out, "%s %s\n", color.RedString("✗"), v)
			}
			return fmt.Errorf("course %s: %d violation(s)", args[0], len(violations))
		}),
	}
}

func (cli *commandLine) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage outline snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild COURSE_ID",
		Short: "Rebuild and republish the snapshot of a course",
		Args:  cobra.ExactArgs(1),
		RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
			resp, err := gw.RebuildCache(ctx, args[0])
			if err != nil {
				return err
			}
			cli.success("snapshot of %s rebuilt (%d sections)", resp.CourseID, len(resp.Sections))
			return nil
		}),
	})
	return cmd
}

package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core/course"
)

func (cli *commandLine) sectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Edit the sections of a course",
	}

	add := &cobra.Command{
		Use:   "add COURSE_ID NAME",
		Short: "Append a section to a course",
		Args:  cobra.ExactArgs(2),
	}
	addKey := add.Flags().String("key", "", "idempotency key")
	add.RunE = cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
		resp, err := gw.CreateSection(ctx, args[0], course.NewSection{Name: args[1], IdempotencyKey: *addKey})
		if err != nil {
			return err
		}
		cli.success("section created: %s", resp.SectionID)
		return nil
	})

	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "rename SECTION_ID NAME",
			Short: "Rename a section",
			Args:  cobra.ExactArgs(2),
			RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
				if _, err := gw.RenameSection(ctx, args[0], args[1]); err != nil {
					return err
				}
				cli.success("section %s renamed", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete SECTION_ID",
			Short: "Delete a section and its activities",
			Args:  cobra.ExactArgs(1),
			RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
				if _, err := gw.DeleteSection(ctx, args[0]); err != nil {
					return err
				}
				cli.success("section %s deleted", args[0])
				return nil
			}),
		},
	)
	return cmd
}

func (cli *commandLine) activityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Edit the activities of a section",
	}

	add := &cobra.Command{
		Use:   "add SECTION_ID",
		Short: "Append an activity to a section",
		Args:  cobra.ExactArgs(1),
	}
	var na struct {
		typ, title, description, payload, key string
	}
	add.Flags().StringVar(&na.typ, "type", "", "activity type")
	add.Flags().StringVar(&na.title, "title", "", "activity title")
	add.Flags().StringVar(&na.description, "description", "", "activity description")
	add.Flags().StringVar(&na.payload, "payload", "", "type payload as JSON")
	add.Flags().StringVar(&na.key, "key", "", "idempotency key")
	add.RunE = cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
		resp, err := gw.CreateActivity(ctx, args[0], course.NewActivity{
			Type:           course.ActivityType(na.typ),
			Title:          na.title,
			Description:    na.description,
			Payload:        rawPayload(na.payload),
			IdempotencyKey: na.key,
		})
		if err != nil {
			return err
		}
		cli.success("activity created: %s", resp.ActivityID)
		return nil
	})

	update := &cobra.Command{
		Use:   "update ACTIVITY_ID",
		Short: "Update the title, description or payload of an activity",
		Args:  cobra.ExactArgs(1),
	}
	var ua struct {
		title, description, payload string
	}
	update.Flags().StringVar(&ua.title, "title", "", "new title")
	update.Flags().StringVar(&ua.description, "description", "", "new description")
	update.Flags().StringVar(&ua.payload, "payload", "", "new type payload as JSON")
	update.RunE = cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
		var data course.UpdateActivity
		if update.Flags().Changed("title") {
			data.Title = &ua.title
		}
		if update.Flags().Changed("description") {
			data.Description = &ua.description
		}
		data.Payload = rawPayload(ua.payload)
		if _, err := gw.UpdateActivity(ctx, args[0], data); err != nil {
			return err
		}
		cli.success("activity %s updated", args[0])
		return nil
	})

	cmd.AddCommand(
		add,
		update,
		&cobra.Command{
			Use:   "rename ACTIVITY_ID TITLE",
			Short: "Rename an activity",
			Args:  cobra.ExactArgs(2),
			RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
				if _, err := gw.RenameActivity(ctx, args[0], args[1]); err != nil {
					return err
				}
				cli.success("activity %s renamed", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete ACTIVITY_ID",
			Short: "Delete an activity",
			Args:  cobra.ExactArgs(1),
			RunE: cli.withGateway(func(ctx context.Context, gw *gateway.Gateway, args []string) error {
				if _, err := gw.DeleteActivity(ctx, args[0]); err != nil {
					return err
				}
				cli.success("activity %s deleted", args[0])
				return nil
			}),
		},
	)
	return cmd
}

func rawPayload(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

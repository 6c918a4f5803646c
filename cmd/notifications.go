package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/notify"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Student notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a student's notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		unread, _ := cmd.Flags().GetBool("unread")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		list, err := notify.NewService(s.NotificationRepo()).List(cmd.Context(), student, unread)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No notifications.")
			return nil
		}

		for _, n := range list {
			mark := " "
			if !n.IsRead {
				mark = "●"
			}
			fmt.Printf("%s %s  %-7s  %s\n", mark, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Type, n.Title)
			fmt.Printf("  %s\n", n.Message)
			fmt.Printf("  %s\n", n.ID)
		}
		fmt.Println(strings.Repeat("─", 60))
		fmt.Printf("%d notification(s)\n", len(list))
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		id, err := idArg(args, 0, "notification ID")
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := notify.NewService(s.NotificationRepo()).MarkRead(cmd.Context(), student, id); err != nil {
			return err
		}
		fmt.Println("Marked as read.")
		return nil
	},
}

func init() {
	notificationsListCmd.Flags().String("student", "", "Student ID")
	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
	notificationsReadCmd.Flags().String("student", "", "Student ID")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
}

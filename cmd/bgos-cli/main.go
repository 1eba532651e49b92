// Command bgos-cli pokes the sync backend from the terminal, mostly
// for checking flow wiring without starting the gateway.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cupogo/andvari/utils/zlog"

	"github.com/brandgrowthos/bgos/pkg/services/backend"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

func main() {
	zlogger, _ := zap.NewDevelopment()
	zlog.Set(zlogger.Sugar())

	app := &cli.App{
		Name:  "bgos-cli",
		Usage: "inspect the chat sync backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base", Usage: "backend base URL", Value: settings.Current.SyncBaseURL},
			&cli.StringFlag{Name: "user", Usage: "user id", Value: settings.Current.UserID},
		},
		Commands: []*cli.Command{
			{
				Name:   "assistants",
				Usage:  "list assistants with their chats",
				Action: listAssistants,
			},
			{
				Name:      "history",
				Usage:     "print the history of a chat",
				ArgsUsage: "<chat-id>",
				Action:    showHistory,
			},
			{
				Name:   "unread",
				Usage:  "print unread counters",
				Action: showUnread,
			},
			{
				Name:      "rename",
				Usage:     "rename a chat",
				ArgsUsage: "<chat-id> <title>",
				Action:    renameChat,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func clientOf(c *cli.Context) (*backend.Client, string, error) {
	base, user := c.String("base"), c.String("user")
	if base == "" || user == "" {
		return nil, "", fmt.Errorf("both --base and --user are required")
	}
	return backend.NewClient(base), user, nil
}

func listAssistants(c *cli.Context) error {
	be, user, err := clientOf(c)
	if err != nil {
		return err
	}
	assistants, chats, err := be.FetchAssistantsWithChats(context.Background(), user)
	if err != nil {
		return err
	}
	for _, ast := range assistants {
		fmt.Printf("%s  %s\n", ast.ID, ast.Name)
		for _, cc := range chats {
			if cc.AssistantID == ast.ID {
				fmt.Printf("    %s  %s (unread %d)\n", cc.ID, cc.Title, cc.Unread)
			}
		}
	}
	return nil
}

func showHistory(c *cli.Context) error {
	be, user, err := clientOf(c)
	if err != nil {
		return err
	}
	chatID := c.Args().First()
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}
	msgs, err := be.FetchChatHistory(context.Background(), user, chatID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.SentDate, m.Sender, m.Text)
	}
	return nil
}

func showUnread(c *cli.Context) error {
	be, user, err := clientOf(c)
	if err != nil {
		return err
	}
	unread, err := be.FetchUnreadMessages(context.Background(), user)
	if err != nil {
		return err
	}
	for id, n := range unread {
		fmt.Printf("%s  %d\n", id, n)
	}
	return nil
}

func renameChat(c *cli.Context) error {
	be, user, err := clientOf(c)
	if err != nil {
		return err
	}
	chatID, title := c.Args().Get(0), c.Args().Get(1)
	if chatID == "" || title == "" {
		return fmt.Errorf("chat id and title are required")
	}
	return be.RenameChat(context.Background(), user, chatID, title)
}

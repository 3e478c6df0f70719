package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant",
	Long: `Send a message and stream the reply. With no message argument an
interactive session starts; type "exit" or press Ctrl-D to leave.
Ctrl-C during a reply stops the stream.`,
	RunE: runChat,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the turns of a conversation",
	RunE:  runChatHistory,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known conversations",
	RunE:  runChatList,
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a conversation and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatDelete,
}

// conversationID selects the conversation for chat and history.
var conversationID string

func init() {
	chatCmd.PersistentFlags().StringVarP(&conversationID, "conversation", "c", "default",
		"Conversation identifier")

	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	if len(args) > 0 {
		return sendAndStream(cmd, strings.Join(args, " "))
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		cmd.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			cmd.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if err := sendAndStream(cmd, line); err != nil {
			cmd.Printf("error: %v\n", err)
		}
	}
}

// sendAndStream runs one turn and prints tokens as they arrive.
// An interrupt cancels the stream; already received text is kept.
func sendAndStream(cmd *cobra.Command, text string) error {
	stream, err := chatService.SendMessage(context.Background(), conversationID, text)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	go func() {
		if _, ok := <-sig; ok {
			stream.Cancel()
		}
	}()

	for piece := range stream.Tokens() {
		cmd.Print(piece)
	}
	cmd.Println()

	if err := stream.Err(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	return nil
}

func runChatHistory(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	msgs, err := chatService.History(context.Background(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(msgs) == 0 {
		cmd.Printf("No messages in conversation %s.\n", conversationID)
		return nil
	}

	for i := range msgs {
		prefix := "You"
		if msgs[i].Role == domain.RoleAssistant {
			prefix = "Assistant"
		}
		cmd.Printf("[%s] %s: %s\n",
			msgs[i].CreatedAt.Format("2006-01-02 15:04"), prefix, msgs[i].Content)
	}
	return nil
}

func runChatList(cmd *cobra.Command, _ []string) error {
	if conversations == nil {
		return errors.New("conversation store not configured")
	}

	ids, err := conversations.ListConversations(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(ids) == 0 {
		cmd.Println("No conversations yet.")
		return nil
	}

	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	if err := chatService.DeleteConversation(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	cmd.Printf("Conversation %s deleted.\n", args[0])
	return nil
}

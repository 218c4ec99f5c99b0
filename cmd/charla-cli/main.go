// ABOUTME: Interactive CLI client for charla chat via the client SDK
// ABOUTME: Provides readline-style input with live message delivery and JWT auth

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/charlachat/charla/internal/client"
	"github.com/charlachat/charla/internal/socket"
)

// tokenPath returns the file the login token is cached in.
func tokenPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "token"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "charla", "token")
}

// getToken returns the JWT token from CHARLA_TOKEN env var or the token file
func getToken() string {
	if token := os.Getenv("CHARLA_TOKEN"); token != "" {
		return token
	}
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// saveToken caches the token so later sessions skip the login
func saveToken(token string) {
	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	os.WriteFile(path, []byte(token), 0600)
}

// session holds the CLI's live state after a successful login.
type session struct {
	client *client.Client
	userID string
	name   string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("charla-cli connected to %s\n", cfg.Server.URL)
	if getToken() != "" {
		fmt.Println("Auth: JWT token configured")
	} else {
		fmt.Println("Auth: none (use /login or /register)")
	}
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, cfg *Config) error {
	scanner := bufio.NewScanner(os.Stdin)

	var sess *session
	var currentConversation string
	defer func() {
		if sess != nil {
			sess.client.Disconnect()
		}
	}()

	for {
		// Prompt shows the active conversation if one is selected
		if currentConversation != "" {
			fmt.Printf("[%s]> ", currentConversation)
		} else {
			fmt.Print("> ")
		}

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if input == "/help" {
			printHelp()
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/") {
			var err error
			sess, currentConversation, err = handleCommand(ctx, cfg, sess, currentConversation, input)
			if err != nil {
				color.Red("[error] %v", err)
			}
			fmt.Println()
			continue
		}

		// Bare text goes to the active conversation
		if sess == nil {
			color.Yellow("Not logged in. Use /login <email> <password> first.")
			fmt.Println()
			continue
		}
		if currentConversation == "" {
			color.Yellow("No conversation selected. Use /join <conversation-id> first.")
			fmt.Println()
			continue
		}

		err := sess.client.Send(client.GroupMessage{
			SenderID:       sess.userID,
			Content:        input,
			ConversationID: currentConversation,
		})
		if err != nil {
			color.Red("[error] %v", err)
		}
		fmt.Println()
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /register <name> <email> <password>  Create an account and log in")
	fmt.Println("  /login <email> <password>            Log in and connect")
	fmt.Println("  /friends                             List friends")
	fmt.Println("  /requests                            List pending friend requests")
	fmt.Println("  /add <email>                         Send a friend request by email")
	fmt.Println("  /accept <user-id>                    Accept a friend request")
	fmt.Println("  /reject <user-id>                    Reject a friend request")
	fmt.Println("  /conversations                       List your conversations")
	fmt.Println("  /join <conversation-id>              Join a conversation room")
	fmt.Println("  /dm <user-id> <message>              Send a direct message")
	fmt.Println("  /history [n]                         Show recent messages of the joined conversation")
	fmt.Println("  /help                                Show this help")
	fmt.Println("  /quit                                Exit")
}

// handleCommand executes one slash command and returns the (possibly updated)
// session and active conversation.
func handleCommand(ctx context.Context, cfg *Config, sess *session, current, input string) (*session, string, error) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/register":
		if len(args) < 3 {
			return sess, current, fmt.Errorf("usage: /register <name> <email> <password>")
		}
		creds, err := client.Register(ctx, nil, cfg.Server.URL, args[0], args[1], args[2])
		if err != nil {
			return sess, current, err
		}
		return connect(ctx, cfg, creds)

	case "/login":
		if len(args) < 2 {
			return sess, current, fmt.Errorf("usage: /login <email> <password>")
		}
		creds, err := client.Login(ctx, nil, cfg.Server.URL, args[0], args[1])
		if err != nil {
			return sess, current, err
		}
		return connect(ctx, cfg, creds)
	}

	// Everything below needs a live session
	if sess == nil {
		return sess, current, fmt.Errorf("not logged in")
	}

	switch cmd {
	case "/friends":
		friends, err := sess.client.Friends(ctx, sess.userID)
		if err != nil {
			return sess, current, err
		}
		if len(friends) == 0 {
			fmt.Println("No friends yet")
			return sess, current, nil
		}
		for _, f := range friends {
			fmt.Printf("  %s: %s <%s>\n", f.ID, f.Name, f.Email)
		}

	case "/requests":
		reqs, err := sess.client.FriendRequests(ctx, sess.userID)
		if err != nil {
			return sess, current, err
		}
		if len(reqs) == 0 {
			fmt.Println("No pending requests")
			return sess, current, nil
		}
		for _, r := range reqs {
			fmt.Printf("  from %s at %s\n", r.FromID, r.CreatedAt)
		}

	case "/add":
		if len(args) < 1 {
			return sess, current, fmt.Errorf("usage: /add <email>")
		}
		if err := sess.client.SendFriendRequestByEmail(ctx, sess.userID, args[0]); err != nil {
			return sess, current, err
		}
		color.Green("Request sent")

	case "/accept":
		if len(args) < 1 {
			return sess, current, fmt.Errorf("usage: /accept <user-id>")
		}
		if err := sess.client.AcceptFriendRequest(ctx, sess.userID, args[0]); err != nil {
			return sess, current, err
		}
		color.Green("Accepted")

	case "/reject":
		if len(args) < 1 {
			return sess, current, fmt.Errorf("usage: /reject <user-id>")
		}
		if err := sess.client.RejectFriendRequest(ctx, sess.userID, args[0]); err != nil {
			return sess, current, err
		}
		fmt.Println("Rejected")

	case "/conversations":
		convs, err := sess.client.Conversations(ctx, sess.userID)
		if err != nil {
			return sess, current, err
		}
		if len(convs) == 0 {
			fmt.Println("No conversations yet")
			return sess, current, nil
		}
		for _, c := range convs {
			kind := "direct"
			if c.IsGroup {
				kind = "group"
			}
			fmt.Printf("  %s: %s (%s, %d members)\n", c.ID, c.Name, kind, len(c.Participants))
		}

	case "/join":
		if len(args) < 1 {
			return sess, current, fmt.Errorf("usage: /join <conversation-id>")
		}
		if err := sess.client.JoinChat(args[0], sess.userID); err != nil {
			return sess, current, err
		}
		color.Green("Joined %s", args[0])
		return sess, args[0], nil

	case "/dm":
		if len(args) < 2 {
			return sess, current, fmt.Errorf("usage: /dm <user-id> <message>")
		}
		err := sess.client.Send(client.DirectMessage{
			SenderID:   sess.userID,
			Content:    strings.Join(args[1:], " "),
			ReceiverID: args[0],
		})
		if err != nil {
			return sess, current, err
		}

	case "/history":
		if current == "" {
			return sess, current, fmt.Errorf("no conversation selected")
		}
		limit := 20
		if len(args) >= 1 {
			fmt.Sscanf(args[0], "%d", &limit)
		}
		msgs, err := sess.client.History(ctx, current, limit)
		if err != nil {
			return sess, current, err
		}
		for _, m := range msgs {
			printMessage(m.SenderID, m.Content, m.Timestamp)
		}

	default:
		return sess, current, fmt.Errorf("unknown command: %s (try /help)", cmd)
	}

	return sess, current, nil
}

// connect builds a client from fresh credentials, opens the socket and wires
// the live event printers.
func connect(ctx context.Context, cfg *Config, creds *client.Credentials) (*session, string, error) {
	saveToken(creds.Token)

	c := client.New(client.Config{
		SocketURL: cfg.Server.SocketURL,
		APIBase:   cfg.Server.URL,
		Token:     creds.Token,
	})
	if err := c.Connect(ctx); err != nil {
		return nil, "", err
	}

	// Personal room carries direct messages and friend events
	if err := c.JoinUserRoom(creds.User.ID); err != nil {
		c.Disconnect()
		return nil, "", err
	}

	sess := &session{client: c, userID: creds.User.ID, name: creds.User.Name}
	go printEvents(c)
	go printConnectivity(c)

	color.Green("Logged in as %s (%s)", creds.User.Name, creds.User.ID)
	return sess, "", nil
}

// printEvents streams inbound server events to the terminal.
func printEvents(c *client.Client) {
	messages := c.On(socket.EventNewMessage)
	friendReqs := c.On(socket.EventFriendRequest)
	accepted := c.On(socket.EventFriendAccepted)
	updated := c.On(socket.EventConversationUpdated)
	serverErrs := c.On(socket.EventError)

	for {
		select {
		case raw, ok := <-messages.C:
			if !ok {
				return
			}
			var msg socket.MessagePayload
			if json.Unmarshal(raw, &msg) == nil {
				printMessage(msg.SenderID, msg.Content, msg.Timestamp)
			}
		case raw, ok := <-friendReqs.C:
			if !ok {
				return
			}
			var from struct {
				Name string `json:"name"`
			}
			json.Unmarshal(raw, &from)
			color.Yellow("[friend request] from %s", from.Name)
		case raw, ok := <-accepted.C:
			if !ok {
				return
			}
			var who struct {
				Name string `json:"name"`
			}
			json.Unmarshal(raw, &who)
			color.Green("[friend] %s accepted your request", who.Name)
		case raw, ok := <-updated.C:
			if !ok {
				return
			}
			var conv struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			json.Unmarshal(raw, &conv)
			color.Cyan("[conversation] %s (%s) updated", conv.Name, conv.ID)
		case raw, ok := <-serverErrs.C:
			if !ok {
				return
			}
			var e socket.ErrorPayload
			json.Unmarshal(raw, &e)
			color.Red("[server error] %s", e.Message)
		}
	}
}

// printConnectivity reports online/offline transitions.
func printConnectivity(c *client.Client) {
	ch, cancel := c.Connectivity()
	defer cancel()

	first := true
	for online := range ch {
		if first {
			// Skip the immediate current-value delivery
			first = false
			continue
		}
		if online {
			color.Green("[online]")
		} else {
			color.Yellow("[offline] reconnecting...")
		}
	}
}

func printMessage(sender, content, timestamp string) {
	ts := timestamp
	if len(ts) > 19 {
		ts = ts[11:19]
	}
	fmt.Printf("%s %s: %s\n", color.HiBlackString(ts), color.CyanString(sender), content)
}

/*
Package main is the entry point for the SplitRoom terminal client.

It loads configuration, initializes the global logging system, resolves the local
identity from the bearer credential, and drives one room session: history plus live
events rendered to the terminal, stdin lines sent as messages. Reconnecting after a
dropped live connection is handled here, as a caller-level policy wrapping re-entry
into the session, with fibonacci backoff and a retry cap.
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"splitroom/internal/app/history"
	"splitroom/internal/app/identity"
	"splitroom/internal/app/livechan"
	"splitroom/internal/app/room"
	"splitroom/internal/app/upload"
	"splitroom/internal/configs"
	"splitroom/internal/pkg/errs"
	"splitroom/internal/pkg/logx"
)

const (
	// reconnectMaxRetries caps how often a dropped live connection is redialed.
	reconnectMaxRetries = 5

	// reconnectBaseDelay seeds the fibonacci backoff between redials.
	reconnectBaseDelay = time.Second
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	roomFlag := flag.String("room", "", "room code to join")
	tokenFlag := flag.String("token", "", "bearer credential (overrides AUTH_TOKEN)")
	nameFlag := flag.String("name", "", "display name (overrides the credential's claim)")
	serverFlag := flag.String("server", "", "REST base URL (overrides SERVER_URL)")
	wsFlag := flag.String("ws", "", "WebSocket base URL (overrides WS_URL)")
	flag.Parse()

	if *serverFlag != "" {
		cfg.ServerURL = *serverFlag
	}
	if *wsFlag != "" {
		cfg.WSURL = *wsFlag
	}
	if *tokenFlag != "" {
		cfg.AuthToken = *tokenFlag
	}
	if *nameFlag != "" {
		cfg.DisplayName = *nameFlag
	}

	logx.InitGlobalLogger(cfg.Environment == "development")

	if *roomFlag == "" {
		fmt.Fprintln(os.Stderr, "FATAL: -room is required")
		os.Exit(1)
	}
	if cfg.AuthToken == "" {
		fmt.Fprintln(os.Stderr, "FATAL: no credential; set AUTH_TOKEN or pass -token")
		os.Exit(1)
	}

	id, err := identity.FromToken(cfg.AuthToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\nPlease sign in again.\n", err)
		os.Exit(1)
	}
	if cfg.DisplayName != "" {
		id.DisplayName = cfg.DisplayName
	}
	if id.DisplayName == "" {
		fmt.Fprintln(os.Stderr, "FATAL: credential carries no display name; pass -name")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One stdin reader shared across reconnects.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	backoff := retry.WithMaxRetries(reconnectMaxRetries, retry.NewFibonacci(reconnectBaseDelay))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		runErr := runSession(ctx, cfg, id, *roomFlag, lines)
		if runErr == nil || errors.Is(runErr, context.Canceled) {
			return nil
		}

		// Only transport failures warrant a redial; credential and missing-room
		// errors will not heal by retrying.
		if errs.IsTransport(runErr) {
			fmt.Println("* connection lost, reconnecting...")
			return retry.RetryableError(runErr)
		}

		return runErr
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		switch {
		case errs.IsAuth(err):
			fmt.Fprintln(os.Stderr, "Your session is no longer valid. Please sign in again.")
		case errs.IsNotFound(err):
			fmt.Fprintln(os.Stderr, "That room does not exist.")
		default:
			fmt.Fprintf(os.Stderr, "Session ended with error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("Bye.")
}

// runSession drives one connected room session until it ends.
func runSession(ctx context.Context, cfg *configs.AppConfig, id identity.Identity, roomID string, lines <-chan string) error {
	sess, err := room.NewSession(room.SessionConfig{
		RoomID:   roomID,
		Identity: id,
		Loader:   history.NewLoader(cfg.ServerURL, id),
		Dialer:   livechan.Dialer{WSURL: cfg.WSURL, Identity: id},
		Uploader: upload.NewUploader(cfg.ServerURL, id),
	})
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	select {
	case <-sess.Ready():
		printRoomEntry(sess, id.DisplayName)
	case err := <-runErr:
		return err
	case <-ctx.Done():
		sess.Close()
		return <-runErr
	}

	for {
		select {
		case err := <-runErr:
			return err

		case msg := <-sess.Feed():
			printMessage(msg)

		case notice := <-sess.Notices():
			switch notice.Kind {
			case room.NoticeJoined:
				fmt.Printf("* %s joined\n", notice.User)
			case room.NoticeLeft:
				fmt.Printf("* %s left\n", notice.User)
			}

		case line, ok := <-lines:
			if !ok {
				sess.Close()
				return <-runErr
			}
			handleLine(ctx, sess, line)

		case <-ctx.Done():
			sess.Close()
			return <-runErr
		}
	}
}

// handleLine interprets one stdin line: slash commands or a plain message body.
func handleLine(ctx context.Context, sess *room.Session, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	switch {
	case line == "/who":
		names := sess.Store().Presence()
		if len(names) == 0 {
			fmt.Println("* nobody else is here")
			return
		}
		fmt.Printf("* online: %s\n", strings.Join(names, ", "))

	case line == "/menu":
		printMenu(sess.Info())

	case strings.HasPrefix(line, "/proof "):
		sendProof(ctx, sess, strings.TrimSpace(strings.TrimPrefix(line, "/proof ")))

	default:
		msg, err := sess.SendText(line)
		if err != nil {
			fmt.Printf("! %v\n", err)
			return
		}
		printMessage(msg)
	}
}

// sendProof uploads the file at path and shares it with the room.
func sendProof(ctx context.Context, sess *room.Session, path string) {
	file, err := os.Open(path)
	if err != nil {
		fmt.Printf("! cannot open %s: %v\n", path, err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		fmt.Printf("! cannot stat %s: %v\n", path, err)
		return
	}

	msg, err := sess.SendProof(ctx, stat.Name(), file, stat.Size())
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	printMessage(msg)
}

// printRoomEntry renders the room header, menu, and history after the initial load.
func printRoomEntry(sess *room.Session, selfName string) {
	info := sess.Info()
	if info != nil && info.Title != "" {
		fmt.Printf("=== %s ===\n", info.Title)
	} else {
		fmt.Printf("=== room %s ===\n", sess.RoomID())
	}
	printMenu(info)

	for _, msg := range sess.Store().Messages() {
		printMessage(msg)
	}

	fmt.Printf("Joined as %s. Type a message, /proof <file>, /who, or /menu. Ctrl+C to leave.\n", selfName)
}

// printMenu renders the ordered menu with prices.
func printMenu(info *room.Info) {
	if info == nil || len(info.Menu) == 0 {
		return
	}

	for _, item := range info.Menu {
		fmt.Printf("  %-24s %8.2f\n", item.Name, float64(item.Price)/100)
	}
}

// printMessage renders one log entry.
func printMessage(msg room.Message) {
	stamp := msg.CreatedAt.Local().Format("15:04")

	if msg.ProofURL != "" {
		if msg.Text != "" {
			fmt.Printf("[%s] %s: %s (proof: %s)\n", stamp, msg.SenderName, msg.Text, msg.ProofURL)
			return
		}
		fmt.Printf("[%s] %s shared a proof: %s\n", stamp, msg.SenderName, msg.ProofURL)
		return
	}

	fmt.Printf("[%s] %s: %s\n", stamp, msg.SenderName, msg.Text)
}

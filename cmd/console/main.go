package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/chatdesk/common"
	"github.com/mbeoliero/chatdesk/internal/api"
	"github.com/mbeoliero/chatdesk/internal/channel"
	"github.com/mbeoliero/chatdesk/internal/chat"
	"github.com/mbeoliero/chatdesk/internal/config"
	"github.com/mbeoliero/chatdesk/internal/entity"
	"github.com/mbeoliero/chatdesk/pkg/jwt"
)

func main() {
	ctx := context.TODO()

	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	// The dashboard shell issues the token; the engine only reads the
	// identity out of it. Refresh is not our job.
	claims, err := jwt.ParseIdentity(cfg.Auth.Token)
	if err != nil {
		log.CtxError(ctx, "failed to parse session token: %v", err)
		panic(err)
	}
	if claims.Expired(time.Now()) {
		log.CtxWarn(ctx, "session token already expired, backend will reject calls")
	}

	log.CtxInfo(ctx, "starting console: identity=%s", claims.UserId)

	httpClient, err := client.NewClient(
		client.WithDialTimeout(cfg.API.DialTimeout),
		client.WithClientReadTimeout(cfg.API.ReadTimeout),
		client.WithWriteTimeout(cfg.API.WriteTimeout),
	)
	if err != nil {
		log.CtxError(ctx, "failed to create http client: %v", err)
		panic(err)
	}

	apiClient, err := api.NewClient(cfg.API.BaseURL,
		api.WithHertzClient(httpClient),
		api.WithToken(cfg.Auth.Token),
	)
	if err != nil {
		log.CtxError(ctx, "failed to create api client: %v", err)
		panic(err)
	}

	presence := chat.NewPresence()
	ch := channel.New(cfg.Socket, presence)
	session := chat.NewSession(claims.UserId, apiClient, ch, presence)

	// A dead socket is not fatal: REST-driven flows keep working, the
	// console just runs without live updates and presence.
	if err := ch.Connect(ctx, claims.UserId); err != nil {
		log.CtxWarn(ctx, "starting without live updates: %v", err)
	}

	if err := session.Start(ctx); err != nil {
		log.CtxError(ctx, "failed to start session: %v", err)
		panic(err)
	}

	unsub := ch.SubscribeNewMessage(func(msg entity.Message) {
		fmt.Printf("\n[%s] %s\n> ", msg.SenderId, msg.Text)
	})
	defer unsub()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go runConsole(ctx, session, quit)

	<-quit

	log.CtxInfo(ctx, "shutting down...")
	session.Stop()
	ch.Disconnect()
	log.CtxInfo(ctx, "console stopped")
}

// runConsole reads commands from stdin until quit or EOF.
func runConsole(ctx context.Context, s *chat.Session, quit chan<- os.Signal) {
	scanner := bufio.NewScanner(os.Stdin)
	printHelp()
	fmt.Print("> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "":
			// empty line

		case "list":
			for i, entry := range s.Directory().Snapshot() {
				marker := " "
				if !entry.IsRead {
					marker = "*"
				}
				fmt.Printf("%2d %s %-10s %-16s %s\n", i, marker, entry.CustomerId, entry.DisplayName, entry.LastMessage)
			}

		case "open":
			if arg == "" {
				fmt.Println("usage: open <customerId>")
				break
			}
			var actor common.Actor
			if err := actor.FromChatUserId(arg); err != nil || actor.Role != common.RoleCustomer {
				fmt.Printf("not a customer id: %s\n", arg)
				break
			}
			if err := s.OpenConversation(ctx, arg); err != nil {
				fmt.Printf("open failed: %v\n", err)
				break
			}
			for _, msg := range s.Buffer().Messages() {
				fmt.Printf("[%s] %s\n", msg.SenderId, msg.Text)
			}

		case "send":
			if _, err := s.SendMessage(ctx, arg); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}

		case "close":
			s.CloseConversation()

		case "who":
			for _, id := range s.Presence().Online() {
				role := "customer"
				if common.IsStaff(id) {
					role = "staff"
				}
				fmt.Printf("%-12s %s\n", id, role)
			}
			fmt.Printf("%d online\n", s.Presence().Count())

		case "quit", "exit":
			quit <- syscall.SIGTERM
			return

		case "help":
			printHelp()

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		fmt.Print("> ")
	}

	// stdin closed
	quit <- syscall.SIGTERM
}

func printHelp() {
	fmt.Println("commands: list | open <customerId> | send <text> | close | who | quit")
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/reelclub/reelclub/internal/app"
	"github.com/reelclub/reelclub/internal/config"
	"github.com/reelclub/reelclub/internal/domain"
	"github.com/reelclub/reelclub/internal/log"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("reelclub %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := log.Setup(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.Null()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting reelclub", "version", Version)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	// Resume a persisted session if one exists; staying anonymous is fine.
	if err := a.Session.CheckSession(ctx); err != nil {
		if !errors.Is(err, domain.ErrAuthRequired) {
			logger.Warn("session resume failed", "error", err)
		}
	}
	if user, ok := a.Session.CurrentUser(); ok {
		fmt.Printf("Signed in as %s\n", user.Username)
	}

	return repl(ctx, a)
}

func repl(ctx context.Context, a *app.App) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println(`Type "help" for commands.`)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()
		case "login":
			err = cmdLogin(ctx, a, reader)
		case "register":
			err = cmdRegister(ctx, a, reader)
		case "logout":
			a.Session.Logout()
			fmt.Println("Signed out.")
		case "forgot":
			err = cmdForgotPassword(ctx, a, reader)
		case "whoami":
			cmdWhoami(a)
		case "clubs":
			err = cmdClubs(ctx, a)
		case "myclubs":
			err = cmdMyClubs(ctx, a)
		case "club":
			err = withID(args, func(id int) error { return cmdClub(ctx, a, id) })
		case "join":
			err = withID(args, func(id int) error { return a.Community.JoinClub(ctx, id) })
		case "leave":
			err = withID(args, func(id int) error { return a.Community.LeaveClub(ctx, id) })
		case "feed":
			err = cmdFeed(ctx, a)
		case "post":
			err = cmdPost(ctx, a, reader, args)
		case "delete":
			err = withID(args, func(id int) error { return a.Community.DeletePost(ctx, id) })
		case "like":
			err = cmdLike(ctx, a, args)
		case "comment":
			err = cmdComment(ctx, a, args)
		case "follow":
			err = withID(args, func(id int) error { return a.Session.Follow(ctx, id) })
		case "unfollow":
			err = withID(args, func(id int) error { return a.Session.Unfollow(ctx, id) })
		case "watchlist":
			err = cmdWatchlist(ctx, a)
		case "watch":
			err = cmdWatchAdd(ctx, a, args)
		case "search":
			cmdSearch(a, strings.Join(args, " "))
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}

		if err != nil {
			printError(err)
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  login                  sign in
  register               create an account
  logout                 sign out
  forgot                 request a password reset email
  whoami                 show current user
  clubs                  list all clubs
  myclubs                list clubs you belong to
  club <id>              show club details and posts
  join <id>              join a club
  leave <id>             leave a club
  feed                   posts from clubs you belong to
  post <clubID> <title>  create a post (body prompted)
  delete <postID>        delete your post
  like <postID>          toggle a like
  comment <postID> <text> add a comment
  follow <userID>        follow a user
  unfollow <userID>      unfollow a user
  watchlist              show your watchlist
  watch <movieID> <title> add to watchlist
  search <query>         fuzzy search clubs and posts
  quit                   exit`)
}

func printError(err error) {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		fmt.Println("Sign in first.")
	case errors.Is(err, domain.ErrNetwork):
		fmt.Println("Network error, try again.")
	default:
		fmt.Printf("Error: %v\n", err)
	}
}

func withID(args []string, fn func(int) error) error {
	if len(args) == 0 {
		return fmt.Errorf("expected an id argument")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	return fn(id)
}

func promptLine(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func cmdLogin(ctx context.Context, a *app.App, reader *bufio.Reader) error {
	username, err := promptLine(reader, "Username: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	if err := a.Session.Login(ctx, domain.Credentials{Username: username, Password: password}); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", username)
	return nil
}

func cmdRegister(ctx context.Context, a *app.App, reader *bufio.Reader) error {
	username, err := promptLine(reader, "Username: ")
	if err != nil {
		return err
	}
	email, err := promptLine(reader, "Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	user, err := a.Session.Register(ctx, domain.Registration{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s!\n", user.Username)
	return nil
}

func cmdForgotPassword(ctx context.Context, a *app.App, reader *bufio.Reader) error {
	email, err := promptLine(reader, "Email: ")
	if err != nil {
		return err
	}
	msg, err := a.Session.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func cmdWhoami(a *app.App) {
	user, ok := a.Session.CurrentUser()
	if !ok {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("%s (id %d)\n", user.Username, user.ID)
}

func cmdClubs(ctx context.Context, a *app.App) error {
	if err := a.Community.FetchAllClubs(ctx); err != nil {
		return err
	}
	clubs, _ := a.Community.AllClubs()
	for _, c := range clubs {
		fmt.Printf("%4d  %s (%d members)\n", c.ID, c.Name, c.MemberCount)
	}
	return nil
}

func cmdMyClubs(ctx context.Context, a *app.App) error {
	if err := a.Community.FetchMyClubs(ctx); err != nil {
		return err
	}
	clubs, _ := a.Community.MyClubs()
	if len(clubs) == 0 {
		fmt.Println("You haven't joined any clubs yet.")
		return nil
	}
	for _, c := range clubs {
		fmt.Printf("%4d  %s\n", c.ID, c.Name)
	}
	return nil
}

func cmdClub(ctx context.Context, a *app.App, clubID int) error {
	if err := a.Community.FetchClubDetails(ctx, clubID); err != nil {
		return err
	}
	club, _ := a.Community.ClubDetail()
	if club == nil {
		return domain.ErrNotFound
	}
	fmt.Printf("%s: %s (%d members)\n", club.Name, club.Description, club.MemberCount)

	if err := a.Community.FetchClubPosts(ctx, clubID); err != nil {
		return err
	}
	posts, _ := a.Community.ClubPosts()
	printPosts(posts)
	return nil
}

func cmdFeed(ctx context.Context, a *app.App) error {
	if err := a.Community.FetchFeed(ctx); err != nil {
		return err
	}
	posts, _ := a.Community.Feed()
	if len(posts) == 0 {
		fmt.Println("Nothing in your feed. Join a club!")
		return nil
	}
	printPosts(posts)
	return nil
}

func printPosts(posts []domain.Post) {
	for _, p := range posts {
		fmt.Printf("#%d %s by %s | %d likes, %d comments\n  %s\n",
			p.ID, p.MovieTitle, p.AuthorUsername, p.LikesCount, len(p.Comments), p.Content)
	}
}

func cmdPost(ctx context.Context, a *app.App, reader *bufio.Reader, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: post <clubID> <movie title>")
	}
	clubID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid club id %q", args[0])
	}
	title := strings.Join(args[1:], " ")
	content, err := promptLine(reader, "What did you think? ")
	if err != nil {
		return err
	}
	post, err := a.Community.CreatePost(ctx, clubID, title, content)
	if err != nil {
		return err
	}
	fmt.Printf("Posted #%d\n", post.ID)
	return nil
}

func cmdLike(ctx context.Context, a *app.App, args []string) error {
	return withID(args, func(id int) error {
		result, err := a.Community.ToggleLike(ctx, id)
		if err != nil {
			return err
		}
		if result.Liked {
			fmt.Printf("Liked. %d likes.\n", result.LikesCount)
		} else {
			fmt.Printf("Unliked. %d likes.\n", result.LikesCount)
		}
		return nil
	})
}

func cmdComment(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: comment <postID> <text>")
	}
	postID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid post id %q", args[0])
	}
	_, err = a.Community.AddComment(ctx, postID, strings.Join(args[1:], " "))
	return err
}

func cmdWatchlist(ctx context.Context, a *app.App) error {
	if err := a.Watchlist.Fetch(ctx); err != nil {
		return err
	}
	items, _ := a.Watchlist.Items()
	if len(items) == 0 {
		fmt.Println("Your watchlist is empty.")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%4d  %-9s %s\n", item.ID, item.Status, item.MovieTitle)
	}
	return nil
}

func cmdWatchAdd(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: watch <movieID> <title>")
	}
	item, err := a.Watchlist.Add(ctx, domain.NewWatchlistItem{
		MovieID:    args[0],
		MovieTitle: strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %q to your watchlist.\n", item.MovieTitle)
	return nil
}

func cmdSearch(a *app.App, query string) {
	if query == "" {
		fmt.Println("usage: search <query>")
		return
	}
	results := a.Search.Search(query)
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%-5s %4d  %s\n", r.Kind, r.ID, r.Title)
	}
}

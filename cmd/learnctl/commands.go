package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/barkatlearn/learn/internal/config"
	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/progress"
	"github.com/barkatlearn/learn/internal/scheduler"
	"github.com/barkatlearn/learn/libs/logger"
	"go.uber.org/zap"
)

var errUsage = errors.New("invalid arguments, run learnctl without arguments for usage")

// command runs one learnctl subcommand against a hydrated manager
type command struct {
	manager *progress.Manager
	cfg     *config.ClientConfig
	out     io.Writer
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "status":
		return c.status()
	case "signup":
		return c.signup(ctx, args)
	case "login":
		return c.login(ctx, args)
	case "apple-login":
		return c.appleLogin(ctx, args)
	case "logout":
		c.manager.Logout()
		fmt.Fprintln(c.out, "Logged out")
		return nil
	case "delete-account":
		if err := c.manager.DeleteAccount(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Account deleted")
		return nil
	case "prefs":
		return c.prefs(args)
	case "feed":
		return c.feed(ctx)
	case "learn":
		return c.withCard(args, func(id string) {
			if c.manager.MarkCardLearned(id) {
				fmt.Fprintf(c.out, "Learned %s, %d left today\n", id, c.manager.RemainingToday())
				return
			}
			fmt.Fprintf(c.out, "Not recorded: %s was learned before or the daily limit is reached\n", id)
		})
	case "open":
		return c.withCard(args, func(id string) {
			c.manager.MarkDetailOpened(id)
			fmt.Fprintf(c.out, "Opened %s\n", id)
		})
	case "finish":
		return c.withCard(args, func(id string) {
			if c.manager.MarkDetailFinished(id) {
				fmt.Fprintf(c.out, "Finished %s\n", id)
				return
			}
			fmt.Fprintf(c.out, "%s was finished before\n", id)
		})
	case "bookmark":
		return c.withCard(args, func(id string) {
			c.manager.Bookmark(id)
			fmt.Fprintf(c.out, "Saved %s\n", id)
		})
	case "unbookmark":
		return c.withCard(args, func(id string) {
			c.manager.Unbookmark(id)
			fmt.Fprintf(c.out, "Removed %s\n", id)
		})
	case "bookmarks":
		return c.bookmarks(ctx)
	case "stats":
		return c.stats(ctx)
	case "sync":
		if err := c.manager.PushProgress(ctx); err != nil {
			return fmt.Errorf("failed to push progress: %w", err)
		}
		fmt.Fprintln(c.out, "Progress pushed")
		return nil
	case "reset":
		c.manager.ResetProgress()
		fmt.Fprintln(c.out, "Local progress cleared")
		return nil
	case "watch":
		return c.watch(ctx)
	}
	return fmt.Errorf("unknown command %q", name)
}

func (c *command) status() error {
	s := c.manager.Snapshot()

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	if s.Authenticated() {
		fmt.Fprintf(w, "Session:\t%s\n", s.UserEmail)
	} else if s.UserEmail != "" {
		fmt.Fprintf(w, "Session:\t%s (local)\n", s.UserEmail)
	} else {
		fmt.Fprintf(w, "Session:\tguest\n")
	}
	fmt.Fprintf(w, "Backend:\t%s\n", backendLabel(c.cfg))
	fmt.Fprintf(w, "Followed:\t%s\n", strings.Join(models.CategorySlugs(s.Preferences), ", "))
	fmt.Fprintf(w, "Learned today:\t%d/%d\n", s.CardsLearnedToday, s.DailyLimit)
	fmt.Fprintf(w, "Cards learned:\t%d\n", s.Stats.CardsLearned)
	fmt.Fprintf(w, "Streak:\t%d days\n", s.Stats.StreakDays)
	fmt.Fprintf(w, "Saved:\t%d\n", len(s.BookmarkedCardIDs))
	fmt.Fprintf(w, "Last learning date:\t%s\n", s.LastLearningDate)
	return w.Flush()
}

func (c *command) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(c.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name (defaults to the email prefix)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	if err := c.manager.Signup(ctx, *email, *password, *name); err != nil {
		return err
	}
	c.manager.InitSession(ctx)
	fmt.Fprintf(c.out, "Signed up as %s\n", c.manager.Snapshot().UserEmail)
	return nil
}

func (c *command) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	if err := c.manager.Login(ctx, *email, *password); err != nil {
		return err
	}
	c.manager.InitSession(ctx)
	if err := c.manager.LoadContent(ctx); err != nil {
		logger.Logger.Warn("failed to load content after login", zap.Error(err))
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", c.manager.Snapshot().UserEmail)
	return nil
}

func (c *command) appleLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apple-login", flag.ContinueOnError)
	fs.SetOutput(c.out)
	token := fs.String("token", "", "Sign in with Apple identity token")
	email := fs.String("email", "", "email shared on the first sign in")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	if err := c.manager.LoginWithApple(ctx, *token, *email); err != nil {
		return err
	}
	c.manager.InitSession(ctx)
	fmt.Fprintln(c.out, "Signed in with Apple")
	return nil
}

func (c *command) prefs(args []string) error {
	if len(args) > 0 {
		categories := models.ParseCategories(args)
		if len(categories) == 0 {
			return fmt.Errorf("no known category in %s", strings.Join(args, ", "))
		}
		c.manager.SetPreferences(categories)
		c.manager.CompleteOnboarding()
	}

	for _, category := range c.manager.Snapshot().Preferences {
		fmt.Fprintf(c.out, "%s\t%s\n", category.Slug(), category)
	}
	return nil
}

func (c *command) feed(ctx context.Context) error {
	if err := c.manager.LoadContent(ctx); err != nil {
		logger.Logger.Warn("failed to load feed, showing cached cards", zap.Error(err))
	}
	return c.printCards(c.manager.AvailableCards())
}

func (c *command) bookmarks(ctx context.Context) error {
	if len(c.manager.Snapshot().AllCards) == 0 {
		if err := c.manager.LoadContent(ctx); err != nil {
			logger.Logger.Warn("failed to load feed", zap.Error(err))
		}
	}
	return c.printCards(c.manager.BookmarkedCards())
}

func (c *command) stats(ctx context.Context) error {
	if err := c.manager.LoadCategoryStats(ctx); err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	s := c.manager.Snapshot()
	if s.CategoryStats == nil {
		fmt.Fprintln(c.out, "Statistics are available after signing in")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tCOMPLETED\tTOTAL")
	for _, category := range models.Categories {
		stat := s.CategoryStats[category]
		fmt.Fprintf(w, "%s\t%d\t%d\n", category, stat.Completed, stat.Total)
	}
	if s.StatsOverview != nil {
		fmt.Fprintf(w, "\nStreak:\t%d\n", s.StatsOverview.Streak)
		fmt.Fprintf(w, "Consumed:\t%d\n", s.StatsOverview.Consumed)
		fmt.Fprintf(w, "Topics:\t%d\n", s.StatsOverview.Topic)
	}
	return w.Flush()
}

func (c *command) watch(ctx context.Context) error {
	s, err := scheduler.NewScheduler(c.manager, c.cfg.RefreshSchedule, logger.Logger)
	if err != nil {
		return err
	}

	unsubscribe := c.manager.Subscribe(func(e progress.Event) {
		if e.Type == progress.EventSessionEnded {
			logger.Logger.Info("session ended", zap.String("reason", e.Reason))
		}
	})
	defer unsubscribe()

	s.Start()
	fmt.Fprintf(c.out, "Refreshing on %q. Press Ctrl+C to stop.\n", c.cfg.RefreshSchedule)
	<-ctx.Done()
	s.Stop()
	return nil
}

func (c *command) withCard(args []string, fn func(id string)) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errUsage
	}
	fn(strings.TrimSpace(args[0]))
	return nil
}

func (c *command) printCards(cards []models.Card) error {
	saved := c.manager.Snapshot().BookmarkedCardIDs
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tTYPE\tTITLE\tSAVED")
	for _, card := range cards {
		mark := ""
		if slices.Contains(saved, card.ID) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", card.ID, card.Category, card.CardType, card.Title, mark)
	}
	return w.Flush()
}

func backendLabel(cfg *config.ClientConfig) string {
	if cfg.Offline() {
		return "offline"
	}
	return cfg.APIURL
}

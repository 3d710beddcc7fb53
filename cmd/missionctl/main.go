// Package main is an administrative command line for accounts, missions and
// levels. It talks to the database directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/app"
	"daily-mission-tracker/internal/config"
	"daily-mission-tracker/internal/level"
	"daily-mission-tracker/internal/model"
)

var errUsage = errors.New("usage")

type command struct {
	help string
	// offline commands only need the level table.
	offline bool
	run     func(ctx context.Context, env *env, args []string) error
}

type env struct {
	cfg *config.Config
	app *app.App
	out io.Writer
}

var commands = map[string]command{
	"convert":    {help: "convert -points N: show the level for an experience balance", offline: true, run: runConvert},
	"register":   {help: "register -name NAME -email EMAIL -password PASS", run: runRegister},
	"login":      {help: "login -email EMAIL -password PASS: print an access token", run: runLogin},
	"whoami":     {help: "whoami -token TOKEN: show the caller's account", run: runWhoami},
	"rename":     {help: "rename -token TOKEN -name NAME: change the caller's display name", run: runRename},
	"unregister": {help: "unregister -token TOKEN: delete the caller's account and missions", run: runUnregister},
	"level":      {help: "level -token TOKEN: show the caller's experience and level", run: runLevel},
	"missions":   {help: "missions -token TOKEN: list the caller's missions", run: runMissions},
	"show":       {help: "show -token TOKEN -id ID: show one mission", run: runShow},
	"add":        {help: "add -token TOKEN -title TITLE [-description TEXT]", run: runAdd},
	"edit":       {help: "edit -token TOKEN -id ID -title TITLE [-description TEXT]", run: runEdit},
	"complete":   {help: "complete -token TOKEN -id ID: complete a mission and earn experience", run: runComplete},
	"remove":     {help: "remove -token TOKEN -id ID", run: runRemove},
}

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Usage = usage
	flag.Parse()

	app.SetupLogging("warn")

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, out: os.Stdout}
	if !cmd.offline {
		a, err := app.New(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize")
		}
		defer a.Close()
		e.app = a
	}

	if err := cmd.run(ctx, e, flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, cmd.help)
			os.Exit(2)
		}
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Command failed")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: missionctl [-config DIR] COMMAND [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].help)
	}
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// caller resolves the user behind an access token.
func (e *env) caller(token string) (model.UserID, error) {
	if e.app.AuthService == nil {
		return "", errors.New("auth.jwt_secret is not configured")
	}
	if token == "" {
		return "", errUsage
	}
	return e.app.AuthService.Verify(token)
}

func parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// optional turns an unset flag into nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func runConvert(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	points := fs.String("points", "", "experience points")
	if err := parse(fs, args); err != nil {
		return err
	}
	n, err := strconv.ParseUint(*points, 10, 64)
	if err != nil {
		return errUsage
	}

	table, err := level.LoadTable(e.cfg.Level.TablePath)
	if err != nil {
		return err
	}
	result := level.NewConverter(table, e.cfg.Level.MaxLevel).Convert(n)
	return e.print(struct {
		Points    uint64  `json:"points"`
		Level     int     `json:"level"`
		Remaining *uint64 `json:"remaining,omitempty"`
	}{n, result.Level, result.Remaining})
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return errUsage
	}
	if e.app.AuthService == nil {
		return errors.New("auth.jwt_secret is not configured")
	}

	id, err := e.app.AuthService.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	return e.print(map[string]string{"userId": id.String()})
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if e.app.AuthService == nil {
		return errors.New("auth.jwt_secret is not configured")
	}

	token, err := e.app.AuthService.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return e.print(map[string]string{"token": token})
}

func runLevel(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("level", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	if err := parse(fs, args); err != nil {
		return err
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	lvl, err := e.app.ExperienceService.FindWithLevel(ctx, userID)
	if err != nil {
		return err
	}
	return e.print(lvl)
}

func runMissions(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("missions", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	if err := parse(fs, args); err != nil {
		return err
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	missions, err := e.app.MissionService.List(ctx, userID)
	if err != nil {
		return err
	}
	if missions == nil {
		missions = []*model.DailyMission{}
	}
	return e.print(missions)
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	title := fs.String("title", "", "mission title")
	description := fs.String("description", "", "mission description")
	if err := parse(fs, args); err != nil {
		return err
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	mission, err := e.app.MissionService.Create(ctx, userID, model.MissionInput{
		Title:       *title,
		Description: optional(*description),
	})
	if err != nil {
		return err
	}
	return e.print(mission)
}

func runEdit(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	id := fs.String("id", "", "mission id")
	title := fs.String("title", "", "mission title")
	description := fs.String("description", "", "mission description")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return errUsage
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	mission, err := e.app.MissionService.Update(ctx, userID, model.MissionID(*id), model.MissionInput{
		Title:       *title,
		Description: optional(*description),
	})
	if err != nil {
		return err
	}
	return e.print(mission)
}

func runComplete(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("complete", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	id := fs.String("id", "", "mission id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return errUsage
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	balance, err := e.app.MissionService.Complete(ctx, userID, model.MissionID(*id))
	if err != nil {
		return err
	}
	return e.print(e.app.ExperienceService.LevelOf(balance))
}

func runRemove(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	id := fs.String("id", "", "mission id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return errUsage
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	if err := e.app.MissionService.Delete(ctx, userID, model.MissionID(*id)); err != nil {
		return err
	}
	return e.print(map[string]string{"deleted": *id})
}

func runWhoami(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	if err := parse(fs, args); err != nil {
		return err
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	info, err := e.app.UserService.Info(ctx, userID)
	if err != nil {
		return err
	}
	return e.print(info)
}

func runRename(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	name := fs.String("name", "", "new display name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *name == "" {
		return errUsage
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	info, err := e.app.UserService.Rename(ctx, userID, *name)
	if err != nil {
		return err
	}
	return e.print(info)
}

func runUnregister(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("unregister", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	if err := parse(fs, args); err != nil {
		return err
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	if err := e.app.UserService.Delete(ctx, userID); err != nil {
		return err
	}
	return e.print(map[string]string{"deleted": userID.String()})
}

func runShow(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	id := fs.String("id", "", "mission id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return errUsage
	}
	userID, err := e.caller(*token)
	if err != nil {
		return err
	}

	mission, err := e.app.MissionService.Get(ctx, userID, model.MissionID(*id))
	if err != nil {
		return err
	}
	return e.print(mission)
}

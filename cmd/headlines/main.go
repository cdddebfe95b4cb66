package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the headlines command line.
type CLI struct {
	Globals

	Run         RunCmd         `cmd:"" default:"1" help:"Fetch top headlines and log them as they arrive."`
	SetKey      SetKeyCmd      `cmd:"" name:"set-key" help:"Store the NewsAPI key in the settings file."`
	ToggleTheme ToggleThemeCmd `cmd:"" name:"toggle-theme" help:"Flip the dark mode preference."`
}

// Globals are flags shared by every command.
type Globals struct {
	Settings string `name:"settings" type:"path" help:"Settings file path (overrides SETTINGS_FILE)."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("headlines"),
		kong.Description("Top headlines from NewsAPI."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "headlines: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"log"
	"os"

	"github.com/mitchellh/cli"
	"github.com/yusufsyaifudin/tagihan/cmd/list"
	"github.com/yusufsyaifudin/tagihan/cmd/send"
)

func main() {
	const appName, appVersion = "tagihan", "1.0.0"

	sendCmd := send.NewCmd(appName, appVersion)

	commands := map[string]cli.CommandFactory{
		"":     sendCmd, // default command if no subcommand defined
		"send": sendCmd,
		"list": list.NewCmd(appName, appVersion),
	}

	c := cli.NewCLI(appName, appVersion)
	c.Args = defaultArgs(os.Args[1:], commands)
	c.Autocomplete = true
	c.Commands = commands

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

// defaultArgs puts "send" in front when the first argument names no command,
// so "tagihan -index 1 laskut.csv" works. cli only falls back to the default
// command when there is no positional argument at all.
func defaultArgs(args []string, commands map[string]cli.CommandFactory) []string {
	if len(args) == 0 {
		return args
	}

	switch args[0] {
	case "-h", "-help", "--help", "-v", "-version", "--version",
		"-autocomplete-install", "-autocomplete-uninstall":
		return args
	}

	if _, ok := commands[args[0]]; ok && args[0] != "" {
		return args
	}

	return append([]string{"send"}, args...)
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	List(ctx context.Context, args []string) error
	Download(ctx context.Context, id string) error
	Delete(ctx context.Context, id string, force bool) error
}

// runREPL starts a read–eval–print loop over reader. Commands that prompt
// read from the same reader.
//
//	Not logged in:
//	  - help             show available commands
//	  - register         create an account
//	  - login            authenticate
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - upload <path>    upload a file (Ctrl-C cancels)
//	  - list [args]      list files: [page] [name|date|size] [asc|desc]
//	  - download <id>    save a file locally
//	  - delete <id>      delete a file
//	  - whoami           show the current account
//	  - logout           log out, cancelling running uploads
//
// Errors returned by handlers are ignored here; handlers report them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("filedash %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if ctx.Err() != nil {
			return
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: upload, (l)ist, download, delete, whoami, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "upload", "list", "l", "download", "delete", "whoami", "logout":
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			dispatchAuthenticated(ctx, a, cmd, args)

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func dispatchAuthenticated(ctx context.Context, a execIface, cmd string, args []string) {
	switch cmd {
	case "upload":
		if len(args) == 0 {
			printlnFn("Usage: upload <path>")
			return
		}
		// Paths may contain spaces.
		_ = a.Upload(ctx, strings.Join(args, " "))

	case "l", "list":
		_ = a.List(ctx, args)

	case "download":
		if len(args) != 1 {
			printlnFn("Usage: download <id>")
			return
		}
		_ = a.Download(ctx, args[0])

	case "delete":
		if len(args) != 1 {
			printlnFn("Usage: delete <id>")
			return
		}
		_ = a.Delete(ctx, args[0], false)

	case "whoami":
		_ = a.WhoAmI(ctx)

	case "logout":
		_ = a.Logout(ctx)
	}
}

// Shell runs the interactive session until the user exits or ctx ends.
func (a *App) Shell(ctx context.Context) {
	a.printf("Welcome to filedash (type 'help' for commands)\n")

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

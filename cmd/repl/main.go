// Command repl is an interactive shell over a Single[string,string] cache,
// for poking at the handle-based contract by hand.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/WSPlXA/fdkvcache/fdtoken"
	"github.com/WSPlXA/fdkvcache/kvcache"
)

const historyFile = ".fdkvcache_repl_history"

func main() {
	capacity := pflag.IntP("cap", "c", 64, "cache capacity (entries)")
	pflag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	c := kvcache.NewSingle[string, string](*capacity, kvcache.Options[string, string]{})
	log.Info().Int("capacity", *capacity).Msg("cache ready")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("fdkvcache repl — commands: insert|upsert TYPE KEY VALUE, get HANDLE, erase HANDLE, find KEY, len, help, quit")

	for {
		input, err := line.Prompt("> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			log.Err(err).Msg("reading input")
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			fmt.Println("insert TYPE KEY VALUE | upsert TYPE KEY VALUE | get HANDLE | erase HANDLE | find KEY | len | quit")
		case "insert", "upsert":
			if len(args) != 3 {
				fmt.Println("usage:", cmd, "TYPE KEY VALUE")
				continue
			}
			typ, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				fmt.Println("bad TYPE:", err)
				continue
			}
			var h fdtoken.Token
			if cmd == "insert" {
				h = c.Insert(uint8(typ), args[1], args[2])
			} else {
				h = c.InsertOrAssign(uint8(typ), args[1], args[2])
			}
			if fdtoken.IsNull(h) {
				fmt.Println("-> null (cache full)")
				continue
			}
			fmt.Printf("-> %d\n", h)
		case "get":
			h, err := parseHandle(args)
			if err != nil {
				fmt.Println(err)
				continue
			}
			v, ok := c.Get(h)
			if !ok {
				fmt.Println("-> miss")
				continue
			}
			fmt.Printf("-> %q\n", *v)
		case "erase":
			h, err := parseHandle(args)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("->", c.Erase(h))
		case "find":
			if len(args) != 1 {
				fmt.Println("usage: find KEY")
				continue
			}
			h := c.FindHandle(args[0])
			if fdtoken.IsNull(h) {
				fmt.Println("-> null (absent)")
				continue
			}
			fmt.Printf("-> %d\n", h)
		case "len":
			fmt.Println("->", c.Len())
		default:
			fmt.Println("unknown command:", cmd, "(try 'help')")
		}
	}
}

func parseHandle(args []string) (fdtoken.Token, error) {
	if len(args) != 1 {
		return fdtoken.Null, fmt.Errorf("usage: get|erase HANDLE")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fdtoken.Null, fmt.Errorf("bad HANDLE: %w", err)
	}
	return fdtoken.Token(n), nil
}

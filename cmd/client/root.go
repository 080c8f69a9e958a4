// Package client is a thin REPL for manually exercising a running treekv
// server's raw-text TCP protocol. treekv speaks one line-oriented
// protocol, not an RPC interface, so "a client" is just a terminal wired
// to a socket.
package client

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
)

var addr string

// ClientCmd connects to a running treekv server and relays stdin lines to
// it, printing each reply, until stdin reaches end-of-input.
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Connect to a running treekv server and send commands interactively",
	Long:  `Connect to a running treekv server and relay each line typed on stdin as a command, printing the server's reply. Commands: "q KEY", "a KEY VALUE", "d KEY", "f PATH".`,
	RunE:  run,
}

func init() {
	ClientCmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address of the treekv server to connect to")
}

func run(_ *cobra.Command, _ []string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	connReader := bufio.NewReader(conn)
	stdin := bufio.NewScanner(os.Stdin)

	for stdin.Scan() {
		line := stdin.Text()
		if line == "" {
			continue
		}
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		reply, err := connReader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("server closed the connection: %w", err)
		}
		fmt.Print(reply)
	}
	return stdin.Err()
}

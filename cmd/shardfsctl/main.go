// Command shardfsctl is a small command-line client for a shardfs cluster.
//
// Usage:
//
//	shardfsctl -nodes host1:8080,host2:8080 <command> [args]
//
// Commands:
//
//	create <path>         create an empty file
//	mkdir <path/>         create a directory
//	rm <path>             delete a file
//	rmdir <path/>         delete an empty directory
//	stat <path>           print entry attributes
//	ls <path/>            list immediate children
//	open <path>           check that a file exists and is a file
//	read <path>           write file contents to stdout
//	write <path>          store stdin as the file contents
//	exists <path>         print true/false; exit 1 when absent
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shardfs/shardfs/pkg/client"
	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/namespace"
)

func main() {
	nodes := flag.String("nodes", "127.0.0.1:8080", "Comma-separated shard addresses, in shard-id order")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-operation timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}
	command, path := args[0], args[1]

	topo, err := cluster.NewTopology(strings.Split(*nodes, ","))
	if err != nil {
		fatalf("invalid -nodes: %v", err)
	}
	c := client.New(cluster.NewRouter(topo), client.Options{CallTimeout: *timeout})
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, c, command, path); err != nil {
		fatalf("%s %s: %v", command, path, err)
	}
}

func run(ctx context.Context, c *client.Client, command, path string) error {
	switch command {
	case "create":
		return c.CreateFile(ctx, path)
	case "mkdir":
		return c.CreateDir(ctx, path)
	case "rm":
		return c.DeleteFile(ctx, path)
	case "rmdir":
		return c.DeleteDir(ctx, path)
	case "open":
		return c.OpenFile(ctx, path)
	case "stat":
		entry, err := c.GetFileAttr(ctx, path)
		if err != nil {
			return err
		}
		printEntry(entry)
		return nil
	case "ls":
		names, err := c.ReadDir(ctx, path)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	case "read":
		data, err := c.ReadFile(ctx, path)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "write":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return c.WriteFile(ctx, path, data)
	case "exists":
		_, err := c.GetFileAttr(ctx, path)
		var nsErr *namespace.Error
		if errors.As(err, &nsErr) && nsErr.Code == namespace.ErrNotFound {
			fmt.Println("false")
			os.Exit(1)
		}
		if err != nil {
			return err
		}
		fmt.Println("true")
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printEntry(entry namespace.Entry) {
	fmt.Printf("path:  %s\n", entry.Path)
	fmt.Printf("kind:  %s\n", entry.Kind)
	fmt.Printf("mode:  %04o\n", entry.Attr.Mode)
	fmt.Printf("size:  %d\n", entry.Attr.Size)
	fmt.Printf("ctime: %s\n", entry.Attr.Ctime.UTC().Format(time.RFC3339))
	fmt.Printf("mtime: %s\n", entry.Attr.Mtime.UTC().Format(time.RFC3339))
}

func fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, "shardfsctl: "+format+"\n", v...)
	os.Exit(1)
}

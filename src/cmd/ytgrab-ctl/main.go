package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/control"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

func main() {
	check := flag.Bool("check", false, "Ask the host to check for updates")
	update := flag.Bool("update", false, "Start an update run on the host")
	status := flag.Bool("status", false, "Print the host's update status")
	watch := flag.Bool("watch", false, "Stream host events until interrupted")
	server := flag.String("server", "127.0.0.1:50061", "Control service address")
	flag.Parse()

	if !*check && !*update && !*status && !*watch {
		flag.Usage()
		os.Exit(2)
	}

	// Connect to the control service
	conn, err := grpc.NewClient(*server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	client := control.NewClient(conn)

	if *check {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		resp, err := client.CheckForUpdate(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}
		fmt.Println("Update check:")
		printStruct(os.Stdout, resp)
	}

	if *update {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		resp, err := client.Update(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Update failed: %v", err)
		}
		fmt.Printf("✓ Update started (run %s)\n", resp.GetFields()["run_id"].GetStringValue())
	}

	if *status {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		resp, err := client.Status(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Status failed: %v", err)
		}
		fmt.Println("Update status:")
		printStruct(os.Stdout, resp)
	}

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := watchEvents(ctx, client, os.Stdout); err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
	}
}

func watchEvents(ctx context.Context, client *control.Client, w io.Writer) error {
	stream, err := client.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatEvent(msg))
	}
}

// formatEvent renders one streamed event as a single line
func formatEvent(msg *structpb.Struct) string {
	f := msg.GetFields()
	kind := f["kind"].GetStringValue()
	source := f["source"].GetStringValue()

	switch kind {
	case "log":
		return fmt.Sprintf("[%s] %s", source, f["text"].GetStringValue())
	case "progress":
		if total := f["total"].GetNumberValue(); total > 0 {
			return fmt.Sprintf("[%s] %.0f/%.0f entries", source, f["processed"].GetNumberValue(), total)
		}
		return fmt.Sprintf("[%s] %.1f%% %s %s", source, f["percent"].GetNumberValue(), f["speed"].GetStringValue(), f["eta"].GetStringValue())
	case "stage":
		return fmt.Sprintf("[%s] %s -> %s", source, f["from"].GetStringValue(), f["to"].GetStringValue())
	case "completed":
		return fmt.Sprintf("[%s] ✓ %s", source, f["text"].GetStringValue())
	case "failed":
		return fmt.Sprintf("[%s] ✗ %s: %s", source, f["reason"].GetStringValue(), f["error"].GetStringValue())
	}
	return fmt.Sprintf("[%s] %s", source, kind)
}

func printStruct(w io.Writer, msg *structpb.Struct) {
	m := msg.AsMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printValue(w, 1, k, m[k])
	}
}

func printValue(w io.Writer, depth int, key string, v any) {
	indent := strings.Repeat("  ", depth)
	if nested, ok := v.(map[string]any); ok {
		fmt.Fprintf(w, "%s%s:\n", indent, key)
		keys := make([]string, 0, len(nested))
		for k := range nested {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printValue(w, depth+1, k, nested[k])
		}
		return
	}
	fmt.Fprintf(w, "%s%s: %v\n", indent, key, v)
}

// Command gossipnode is the thinnest possible runnable wrapper around
// the engine package: parse flags, build a Config, start an Engine,
// and read lines from stdin as origination requests until Ctrl-C.
// Argument parsing and stdin input are explicitly outside the
// protocol core itself; this binary exists only so the engine is
// runnable without writing a Go program first.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/config"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/engine"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/events"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/logging"
)

func main() {
	def := config.Default()

	port := flag.Int("port", def.Port, "UDP port to listen on")
	bootstrap := flag.String("bootstrap", def.Bootstrap, "seed node address (ip:port); empty to run standalone")
	fanout := flag.Int("fanout", def.Fanout, "number of peers to gossip to per message")
	ttl := flag.Int("ttl", def.TTL, "hop budget for originated and forwarded messages")
	peerLimit := flag.Int("peer-limit", def.PeerLimit, "maximum tracked peers")
	pingInterval := flag.Float64("ping-interval", def.PingIntervalS, "seconds between liveness PINGs")
	peerTimeout := flag.Float64("peer-timeout", def.PeerTimeoutS, "seconds of silence before a peer is dropped")
	seed := flag.Int64("seed", def.Seed, "RNG seed for peer sampling")
	mode := flag.String("mode", string(def.Mode), "push or hybrid")
	pullInterval := flag.Float64("pull-interval", def.PullIntervalS, "seconds between IHAVE advertisements (hybrid mode)")
	ihaveMaxIDs := flag.Int("ihave-max-ids", def.IHaveMaxIDs, "max ids advertised per IHAVE")
	powK := flag.Int("pow-k", def.PowK, "required admission proof-of-work difficulty; 0 disables admission control")
	jsonLogs := flag.Bool("json-logs", false, "emit structured logs as JSON instead of a colorized console")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	cfg := config.New(
		config.WithPort(*port),
		config.WithBootstrap(*bootstrap),
		config.WithFanout(*fanout),
		config.WithTTL(*ttl),
		config.WithPeerLimit(*peerLimit),
		config.WithPingInterval(*pingInterval),
		config.WithPeerTimeout(*peerTimeout),
		config.WithSeed(*seed),
		config.WithMode(config.Mode(*mode)),
		config.WithPullInterval(*pullInterval),
		config.WithIHaveMaxIDs(*ihaveMaxIDs),
		config.WithPowK(*powK),
	)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "gossipnode:", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		JSON:  *jsonLogs,
		Level: parseLevel(*logLevel),
		Name:  "gossipnode",
	})
	defer log.Sync()

	eng, err := engine.New(cfg, engine.WithLogger(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, "gossipnode: failed to construct engine:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		<-sigCh
		log.Info("shutdown requested")
		cancel()
	}()

	if err := eng.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gossipnode: failed to start engine:", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"node_id": eng.NodeID(),
		"addr":    eng.SelfAddr(),
		"mode":    string(cfg.Mode),
	}).Info("gossipnode listening")

	go logEvents(log, eng.Events())

	stdinLines := readStdinLines()
	for {
		select {
		case <-ctx.Done():
			eng.Stop()
			<-eng.Done()
			return
		case line, ok := <-stdinLines:
			if !ok {
				eng.Stop()
				<-eng.Done()
				return
			}
			topic, data := splitOriginateLine(line)
			eng.Originate(topic, data)
		}
	}
}

func splitOriginateLine(line string) (topic, data string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "default", line
}

func readStdinLines() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			out <- text
		}
	}()
	return out
}

func logEvents(log *logging.Logger, ch <-chan events.Event) {
	for ev := range ch {
		log.WithFields(map[string]interface{}{
			"direction": string(ev.Direction),
			"msg_type":  string(ev.MsgType),
			"msg_id":    ev.MsgID,
			"peer":      ev.PeerAddr,
		}).Debug("protocol event")
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

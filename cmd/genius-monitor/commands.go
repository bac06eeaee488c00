package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hmbacher/genius-gateway/internal/config"
	"github.com/hmbacher/genius-gateway/internal/discovery"
	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/hmbacher/genius-gateway/internal/packet"
	"github.com/hmbacher/genius-gateway/internal/server"
	"github.com/hmbacher/genius-gateway/internal/socket"
	"github.com/hmbacher/genius-gateway/internal/ui"
)

// Command flags
var (
	watchJSON       bool
	discoverTimeout time.Duration
	discoverSave    bool
	discoverUse     bool
	classifyJSON    bool
	sendWait        time.Duration
	initForce       bool

	simListen   string
	simFrames   string
	simInterval time.Duration
	simOnce     bool
	simCert     string
	simKey      string
)

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}
	if gatewayURL != "" {
		cfg.Gateway.URL = gatewayURL
	}
	if encoding != "" {
		cfg.Gateway.Encoding = encoding
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if tablePath != "" {
		cfg.Packets.Table = tablePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newSocket builds the gateway socket from cfg. When a metrics address is
// configured the socket's collectors are served over HTTP until ctx ends.
func newSocket(ctx context.Context, cfg *config.Config) (*socket.Socket, error) {
	opts, err := cfg.SocketOptions()
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Addr != "" {
		reg, err := serveMetrics(ctx, cfg.Metrics.Addr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, socket.WithRegisterer(reg))
	}
	return socket.New(cfg.Gateway.URL, opts...)
}

func serveMetrics(ctx context.Context, addr string) (prometheus.Registerer, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("Serving metrics", zap.String("addr", ln.Addr().String()))
	return reg, nil
}

// monitorCmd runs the interactive monitor
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the interactive packet monitor",
	Long: `Open a full-screen view of the gateway connection, the alarm state and
every received radio frame. Identical frames are folded into one row with a
counter.`,
	Example: `  # Monitor the configured gateway (monitor is the default command)
  genius-monitor

  # Monitor a specific gateway using JSON frames
  genius-monitor monitor --url ws://192.168.1.40/ws/events --encoding text`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := cfg.PacketTable()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sock, err := newSocket(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sock.Close() }()

	p := tea.NewProgram(ui.NewMonitorModel(cfg.Gateway.URL), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		ui.Attach(p, sock, table)
		if err := sock.Start(ctx); err != nil {
			logging.Error("Failed to start socket", zap.Error(err))
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}

// watchCmd prints frames line by line
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print received packets line by line",
	Long: `Print every received radio frame and alarm change as one line on stdout.
Connection changes are reported on stderr. Stops on Ctrl+C.`,
	Example: `  # Human-readable lines
  genius-monitor watch

  # JSON lines for scripting
  genius-monitor watch --json | jq .`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print one JSON object per line")
}

// watchLine is the --json output of watch.
type watchLine struct {
	Time   time.Time          `json:"time"`
	Event  string             `json:"event"`
	Packet *packet.Packet     `json:"packet,omitempty"`
	Alarm  *packet.AlarmState `json:"alarm,omitempty"`
	Hash   string             `json:"hash,omitempty"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := cfg.PacketTable()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sock, err := newSocket(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	emit := func(line watchLine, text string) {
		if watchJSON {
			_ = enc.Encode(line)
			return
		}
		fmt.Fprintf(out, "%s  %s\n", line.Time.Format("15:04:05.000"), text)
	}

	sock.Status().Watch(func(connected bool) {
		state := "disconnected"
		if connected {
			state = "connected"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", state, cfg.Gateway.URL)
	})
	socket.Subscribe(sock, packet.EventPacket, func(f packet.RadioFrame) {
		pkt := packet.Interpret(f.Data, table)
		emit(watchLine{
			Time:   f.Time(time.Now()),
			Event:  packet.EventPacket,
			Packet: &pkt,
			Hash:   fmt.Sprintf("%016x", pkt.Hash()),
		}, pkt.String())
	})
	socket.Subscribe(sock, packet.EventAlarm, func(state packet.AlarmState) {
		text := "alarm cleared"
		if state.IsAlarming {
			text = "ALARM ACTIVE"
		}
		emit(watchLine{Time: time.Now(), Event: packet.EventAlarm, Alarm: &state}, text)
	})

	if err := sock.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// discoverCmd finds gateways on the local network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find gateways on the local network",
	Long: `Find Genius gateways using mDNS/DNS-SD discovery.

Gateways advertise an HTTP service under a genius*.local hostname. Use
--save to remember every gateway found in the config file, and --use to
also make the first one the monitored gateway.`,
	Example: `  # Browse for 5 seconds (default)
  genius-monitor discover

  # Remember the gateways and monitor the first one
  genius-monitor discover --save --use`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 0, "Browse duration (default: config discovery.timeout)")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", false, "Remember found gateways in the config file")
	discoverCmd.Flags().BoolVar(&discoverUse, "use", false, "With --save, set the first gateway as gateway.url")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scanner, err := discovery.NewScanner().WithHostPattern(cfg.Discovery.HostPattern)
	if err != nil {
		return err
	}
	scanner.Timeout = cfg.Discovery.Timeout
	if discoverTimeout > 0 {
		scanner.Timeout = discoverTimeout
	}

	ctx, cancel := signalContext()
	defer cancel()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Discover", "genius-monitor discover",
		ui.Field{Key: "Service", Value: discovery.ServiceType},
		ui.Field{Key: "Timeout", Value: scanner.Timeout.String()},
	)

	gateways, err := scanner.Scan(ctx)
	if err != nil {
		printer.PrintError("Discovery failed", err,
			"Check that multicast traffic is allowed on this network",
			"Use --url to connect to a known address instead")
		return err
	}
	printer.PrintGateways(gateways)

	if !discoverSave || len(gateways) == 0 {
		return nil
	}
	for _, gw := range gateways {
		cfg.RememberGateway(gw.Hostname, gw.EventURL(), gw.IP)
	}
	if discoverUse {
		cfg.Gateway.URL = gateways[0].EventURL()
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	printer.Println(fmt.Sprintf("Saved %d gateway(s)", len(gateways)))
	return nil
}

// classifyCmd interprets a frame given as hex
var classifyCmd = &cobra.Command{
	Use:   "classify <hex>",
	Short: "Classify and decode a radio frame given as hex",
	Long: `Classify a radio frame against the packet table and print its decoded
fields. Spaces, colons and dashes between bytes are ignored.`,
	Example: `  genius-monitor classify "00 00 00 ... 01 00 00 00 00 2A"
  genius-monitor classify --json 0a0b0c`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print the decoded packet as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	data, err := packet.ParseHex(strings.Join(args, ""))
	if err != nil {
		return err
	}

	table := packet.GeniusTable()
	if tablePath != "" {
		if table, err = packet.LoadTable(tablePath); err != nil {
			return err
		}
	}

	pkt := packet.Interpret(data, table)
	if classifyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pkt)
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintPacket(pkt)
	return nil
}

// sendCmd emits one event to the gateway
var sendCmd = &cobra.Command{
	Use:   "send <event> [data]",
	Short: "Send one event to the gateway",
	Long: `Connect, send a single event and disconnect. data is parsed as JSON;
anything that is not valid JSON is sent as a string.`,
	Example: `  genius-monitor send subscribe packet
  genius-monitor send alarm-silence '{"line": 12}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().DurationVar(&sendWait, "wait", 5*time.Second, "Maximum time to wait for the connection")
}

func runSend(cmd *cobra.Command, args []string) error {
	event := args[0]
	if socket.IsReserved(event) {
		return fmt.Errorf("%q is a local transport event and cannot be sent", event)
	}
	var data any
	if len(args) == 2 {
		data = parseData(args[1])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelWait := context.WithTimeout(ctx, sendWait)
	defer cancelWait()

	sock, err := newSocket(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sock.Close() }()

	open := make(chan struct{}, 1)
	stop := sock.Status().Watch(func(connected bool) {
		if connected {
			select {
			case open <- struct{}{}:
			default:
			}
		}
	})
	defer stop()

	if err := sock.Start(ctx); err != nil {
		return err
	}
	select {
	case <-open:
	case <-ctx.Done():
		return fmt.Errorf("gateway %s not reachable within %s", cfg.Gateway.URL, sendWait)
	}

	sock.Send(event, data)
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", event, cfg.Gateway.URL)
	return nil
}

func parseData(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// tableCmd prints the active packet table
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the packet table as YAML",
	Long: `Print the packet table used for classification. The output is a valid
--table file and can be used as the starting point for a custom table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table := packet.GeniusTable()
		if tablePath != "" {
			var err error
			if table, err = packet.LoadTable(tablePath); err != nil {
				return err
			}
		}
		data, err := packet.MarshalTable(table)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// simulateCmd serves a simulated gateway event socket
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated gateway that replays radio frames",
	Long: `Serve a gateway event socket on --listen and replay radio frames to every
subscribed client. Frames come from --frames (one hex frame per line, # for
comments) or, by default, one example frame per packet table entry.

Alarm start and stop frames are followed by the matching alarm state event,
and the current alarm state is re-sent every second.`,
	Example: `  # Replay the built-in example frames every second
  genius-monitor simulate

  # In a second terminal
  genius-monitor --url ws://localhost:8080/ws/events

  # Replay a recording once, as JSON frames
  genius-monitor simulate --frames capture.hex --once --encoding text`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simListen, "listen", ":8080", "Listen address")
	simulateCmd.Flags().StringVar(&simFrames, "frames", "", "Frame file (default: built-in example frames)")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", server.DefaultInterval, "Pause between frames")
	simulateCmd.Flags().BoolVar(&simOnce, "once", false, "Play the frames once instead of looping")
	simulateCmd.Flags().StringVar(&simCert, "tls-cert", "", "Certificate file for wss")
	simulateCmd.Flags().StringVar(&simKey, "tls-key", "", "Private key file for wss")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := cfg.PacketTable()
	if err != nil {
		return err
	}
	enc, err := socket.ParseEncoding(cfg.Gateway.Encoding)
	if err != nil {
		return err
	}

	frames := server.DemoFrames(table)
	if simFrames != "" {
		if frames, err = server.LoadFrames(simFrames); err != nil {
			return err
		}
	}

	srv, err := server.New(&server.Config{
		Addr:     simListen,
		Encoding: enc,
		CertPath: simCert,
		KeyPath:  simKey,
		Events:   []string{packet.EventPacket, packet.EventAlarm},
	})
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Simulate", "genius-monitor simulate",
		ui.Field{Key: "URL", Value: srv.URL()},
		ui.Field{Key: "Frames", Value: fmt.Sprintf("%d", len(frames))},
		ui.Field{Key: "Interval", Value: simInterval.String()},
	)

	player := &server.Player{
		Emitter:  srv,
		Table:    table,
		Frames:   frames,
		Interval: simInterval,
		Loop:     !simOnce,
	}
	go player.RunAlarmState(ctx, server.DefaultAlarmStateInterval)
	go func() {
		if err := player.Run(ctx); err != nil {
			logging.Error("Player stopped", zap.Error(err))
		}
		logging.Info("Playback finished")
	}()

	return srv.Start(ctx)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		cfg := config.Default()
		if gatewayURL != "" {
			cfg.Gateway.URL = gatewayURL
		}
		if err := cfg.SaveTo(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func saveConfig(cfg *config.Config) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

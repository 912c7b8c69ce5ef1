// Command turboftp is an interactive FTP download client with resumable
// single-stream transfers and multi-connection segmented transfers.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/term"

	"turboftp/config"
	"turboftp/ftpconn"
	"turboftp/listing"
	"turboftp/perfmetrics"
	"turboftp/progress"
	"turboftp/terminal"
	"turboftp/transfer"
)

const defaultFTPPort = 21

// smallFileFactor: files at or below this many block sizes are not worth
// segmenting, the connection setup would dominate the transfer.
const smallFileFactor = 10

type client struct {
	cfg      config.Config
	endpoint config.ServerEndpoint

	factory    *ftpconn.Factory
	session    *ftpconn.Session
	currentDir string

	downloader *transfer.Downloader

	themes    *terminal.ThemeManager
	tables    *terminal.TableFormatter
	completer *terminal.CommandCompleter

	metricsPath string
	stdin       *bufio.Reader
}

func newClient(cfg config.Config) (*client, error) {
	themes, err := terminal.NewThemeManager()
	if err != nil {
		return nil, err
	}
	return &client{
		cfg:         cfg,
		themes:      themes,
		tables:      terminal.NewTableFormatter(),
		completer:   terminal.NewCommandCompleter(),
		metricsPath: perfmetrics.DefaultLogFile,
		stdin:       bufio.NewReader(os.Stdin),
	}, nil
}

func main() {
	cfg := config.Default()
	if len(os.Args) > 2 && os.Args[1] == "-config" {
		loaded, err := config.Load(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	c, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	c.completer.SetBrowser(c)

	c.themes.InfoColor().Println("turboftp - segmented FTP download client")
	c.themes.TextColor().Println("Type 'help' for commands, 'open <host>' to connect.")

	p := prompt.New(
		c.executor,
		c.completer.Completer,
		prompt.OptionLivePrefix(c.livePrefix),
		prompt.OptionTitle("turboftp"),
	)
	p.Run()
}

func (c *client) livePrefix() (string, bool) {
	if c.session == nil {
		return "turboftp> ", true
	}
	return fmt.Sprintf("turboftp %s:%s> ", c.endpoint.Host, c.currentDir), true
}

func (c *client) executor(in string) {
	args := strings.Fields(strings.TrimSpace(in))
	if len(args) == 0 {
		return
	}

	cmd := strings.ToLower(args[0])
	args = args[1:]

	var err error
	switch cmd {
	case "open":
		err = c.cmdOpen(args)
	case "close":
		err = c.cmdClose()
	case "ls", "dir":
		err = c.cmdList(args)
	case "lls":
		err = c.cmdLocalList(args)
	case "cd":
		err = c.cmdChangeDir(args)
	case "pwd":
		err = c.cmdPwd()
	case "get":
		err = c.cmdGet(args)
	case "turbo":
		err = c.cmdTurbo(args)
	case "sysinfo":
		err = c.cmdSysinfo()
	case "config":
		c.cmdConfig()
	case "theme":
		err = c.cmdTheme(args)
	case "help":
		c.cmdHelp()
	case "clear":
		fmt.Print("\033[2J\033[H")
	case "exit", "quit", "bye":
		c.cmdClose()
		c.themes.TextColor().Println("Goodbye.")
		os.Exit(0)
	default:
		err = fmt.Errorf("unknown command: %s (try 'help')", cmd)
	}

	if err != nil {
		c.themes.ErrorColor().Printf("error: %v\n", err)
	}
}

// cmdOpen connects to host[:port], prompting for credentials.
func (c *client) cmdOpen(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: open <host> [port]")
	}
	if c.session != nil {
		if err := c.cmdClose(); err != nil {
			return err
		}
	}

	host := args[0]
	port := defaultFTPPort
	if h, p, err := splitHostPort(host); err == nil {
		host, port = h, p
	}
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port: %s", args[1])
		}
		port = p
	}

	user, password, err := c.promptCredentials()
	if err != nil {
		return err
	}

	c.endpoint = config.ServerEndpoint{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Passive:  true,
	}
	c.factory = ftpconn.NewFactory(c.endpoint, c.cfg)
	c.factory.Logf = c.themes.InfoColor().PrintfFunc()

	sess, err := c.factory.Connect()
	if err != nil {
		c.factory = nil
		return err
	}
	c.session = sess
	if cwd, err := sess.CurrentDir(); err == nil {
		c.currentDir = cwd
	} else {
		c.currentDir = "/"
	}

	c.downloader = &transfer.Downloader{
		Dialer: c.factory,
		Config: c.cfg,
		Logf:   c.themes.InfoColor().PrintfFunc(),
	}
	c.completer.ClearCache()

	c.themes.SuccessColor().Printf("Connected to %s as %s\n", c.endpoint.Addr(), user)
	return nil
}

func (c *client) promptCredentials() (string, string, error) {
	fmt.Print("Username (anonymous): ")
	user, err := c.stdin.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read username: %v", err)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		user = "anonymous"
	}

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("read password: %v", err)
	}
	password := string(pw)
	if user == "anonymous" && password == "" {
		password = "anonymous@"
	}
	return user, password, nil
}

func (c *client) cmdClose() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Quit()
	c.session = nil
	c.factory = nil
	c.downloader = nil
	c.currentDir = ""
	c.completer.ClearCache()
	if err != nil {
		return fmt.Errorf("close: %v", err)
	}
	c.themes.TextColor().Println("Disconnected.")
	return nil
}

func (c *client) cmdList(args []string) error {
	if c.session == nil {
		return fmt.Errorf("not connected")
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	entries, err := c.List(path)
	if err != nil {
		return err
	}
	return c.tables.FormatRemoteDirectory(entries)
}

func (c *client) cmdLocalList(args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	return c.tables.FormatLocalDirectory(path)
}

func (c *client) cmdChangeDir(args []string) error {
	if c.session == nil {
		return fmt.Errorf("not connected")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: cd <path>")
	}
	if err := c.session.ChangeDir(args[0]); err != nil {
		return fmt.Errorf("cd %s: %v", args[0], err)
	}
	if cwd, err := c.session.CurrentDir(); err == nil {
		c.currentDir = cwd
	}
	c.completer.ClearCache()
	return nil
}

func (c *client) cmdPwd() error {
	if c.session == nil {
		return fmt.Errorf("not connected")
	}
	cwd, err := c.session.CurrentDir()
	if err != nil {
		return fmt.Errorf("pwd: %v", err)
	}
	c.themes.TextColor().Println(cwd)
	return nil
}

// cmdGet downloads one file over a single connection, resuming any partial
// local copy.
func (c *client) cmdGet(args []string) error {
	if c.session == nil {
		return fmt.Errorf("not connected")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: get <remote> [local]")
	}
	remote := args[0]
	local := remoteBase(remote)
	if len(args) > 1 {
		local = args[1]
	}

	size, err := c.session.FileSize(remote)
	if err != nil {
		size = 0 // server refused SIZE, download without a total
	}

	return c.runDownload(transfer.Request{
		RemotePath:   remote,
		LocalPath:    local,
		ExpectedSize: size,
	}, "single", 1)
}

// cmdTurbo downloads one file over N parallel connections. Small files fall
// back to a single stream.
func (c *client) cmdTurbo(args []string) error {
	if c.session == nil {
		return fmt.Errorf("not connected")
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: turbo <segments> <remote> [local]")
	}

	segments, err := strconv.Atoi(args[0])
	if err != nil || segments < 1 {
		return fmt.Errorf("invalid segment count: %s", args[0])
	}
	remote := args[1]
	local := remoteBase(remote)
	if len(args) > 2 {
		local = args[2]
	}

	size, err := c.session.FileSize(remote)
	if err != nil {
		return fmt.Errorf("SIZE %s: %v (segmented download needs the remote size)", remote, err)
	}

	req := transfer.Request{
		RemotePath:   remote,
		LocalPath:    local,
		ExpectedSize: size,
		Segments:     segments,
	}
	if size <= int64(smallFileFactor)*c.cfg.BlockSize || segments < 2 {
		c.themes.InfoColor().Printf("%s is small (%s), using a single stream\n",
			remote, progress.FormatBytes(size))
		req.Segments = 0
		return c.runDownload(req, "single", 1)
	}
	return c.runDownload(req, "segmented", segments)
}

// runDownload executes req on the shared downloader, wiring progress
// reporting, Ctrl-C stop, and the performance log.
func (c *client) runDownload(req transfer.Request, mode string, segments int) error {
	c.downloader.ClearStop()

	// Ctrl-C stops the transfer at the next chunk, keeping partial data.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			c.themes.InfoColor().Println("\nstopping, partial data is kept for resume")
			c.downloader.RequestStop()
		case <-done:
		}
	}()
	defer func() {
		signal.Stop(sigCh)
		close(done)
	}()

	reporter := progress.NewReporter(os.Stdout)
	start := time.Now()
	retriesBefore := c.downloader.Retries()

	var err error
	if mode == "segmented" {
		err = c.downloader.Segmented(req, reporter.Segmented(req.ExpectedSize, segments))
	} else {
		err = c.downloader.Single(req, reporter.Single())
	}

	elapsed := time.Since(start)
	bytes := localResultSize(req)
	reporter.Finish(bytes)

	status := "ok"
	if err != nil {
		status = "failed"
	}
	rec := perfmetrics.Record{
		Mode:           mode,
		FileName:       req.RemotePath,
		FileSizeMB:     float64(req.ExpectedSize) / (1024 * 1024),
		Segments:       segments,
		ThroughputMBps: float64(bytes) / (1024 * 1024) / elapsed.Seconds(),
		TimeSec:        elapsed.Seconds(),
		Retries:        c.downloader.Retries() - retriesBefore,
		Status:         status,
	}
	if lerr := perfmetrics.Log(c.metricsPath, rec); lerr != nil {
		c.themes.ErrorColor().Printf("metrics: %v\n", lerr)
	}

	if err != nil {
		if errors.Is(err, transfer.ErrStopped) {
			c.themes.InfoColor().Printf("stopped, %s saved so far\n", progress.FormatBytes(bytes))
			return nil
		}
		return err
	}
	c.themes.SuccessColor().Printf("Saved %s (%s in %.1fs)\n",
		req.LocalPath, progress.FormatBytes(bytes), elapsed.Seconds())
	return nil
}

// cmdSysinfo shows host resources and a suggested segment count.
func (c *client) cmdSysinfo() error {
	cores, err := cpu.Counts(true)
	if err != nil {
		return fmt.Errorf("cpu info: %v", err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("memory info: %v", err)
	}

	suggested := cores
	if suggested > c.cfg.MaxSegments {
		suggested = c.cfg.MaxSegments
	}

	text := c.themes.TextColor()
	text.Printf("CPU cores:          %d\n", cores)
	text.Printf("Memory:             %s used of %s (%.1f%%)\n",
		progress.FormatBytes(int64(vm.Used)), progress.FormatBytes(int64(vm.Total)), vm.UsedPercent)
	text.Printf("Suggested segments: %d (turbo %d <file>)\n", suggested, suggested)
	return nil
}

func (c *client) cmdConfig() {
	text := c.themes.TextColor()
	text.Printf("timeout:          %ds\n", c.cfg.TimeoutSeconds)
	text.Printf("connect retries:  %d\n", c.cfg.ConnectRetries)
	text.Printf("list retries:     %d\n", c.cfg.ListRetries)
	text.Printf("download retries: %d\n", c.cfg.DownloadRetries)
	text.Printf("block size:       %s\n", progress.FormatBytes(c.cfg.BlockSize))
	text.Printf("max segments:     %d\n", c.cfg.MaxSegments)
	text.Printf("metrics log:      %s\n", c.metricsPath)
}

func (c *client) cmdTheme(args []string) error {
	if len(args) < 1 {
		c.themes.TextColor().Printf("current theme: %s (available: dark, light)\n", c.themes.ThemeName())
		return nil
	}
	if err := c.themes.SetTheme(args[0]); err != nil {
		return err
	}
	c.themes.SuccessColor().Printf("theme set to %s\n", args[0])
	return nil
}

func (c *client) cmdHelp() {
	text := c.themes.TextColor()
	text.Println("Commands:")
	text.Println("  open <host> [port]          connect (prompts for credentials)")
	text.Println("  close                       disconnect")
	text.Println("  ls [path]                   list remote directory")
	text.Println("  lls [path]                  list local directory")
	text.Println("  cd <path> / pwd             navigate the server")
	text.Println("  get <remote> [local]        download, resuming partial files")
	text.Println("  turbo <n> <remote> [local]  download over n parallel connections")
	text.Println("  sysinfo                     host resources and suggested segments")
	text.Println("  config                      show active configuration")
	text.Println("  theme [dark|light]          switch colors")
	text.Println("  clear / exit                housekeeping")
	text.Println("Ctrl-C during a download stops it; partial data is kept.")
}

// List satisfies terminal.RemoteBrowser and backs the ls command.
func (c *client) List(path string) ([]listing.Entry, error) {
	if c.session == nil {
		return nil, fmt.Errorf("not connected")
	}
	lister := &listing.Lister{
		Client:  c.session,
		Retries: c.cfg.ListRetries,
		Logf:    c.themes.InfoColor().PrintfFunc(),
	}
	return lister.List(path)
}

// IsConnected satisfies terminal.RemoteBrowser.
func (c *client) IsConnected() bool {
	return c.session != nil
}

// CurrentDir satisfies terminal.RemoteBrowser.
func (c *client) CurrentDir() string {
	if c.currentDir == "" {
		return "."
	}
	return c.currentDir
}

// localResultSize reports how many bytes the download left on disk: the whole
// file on success, the partial single-stream file otherwise. Failed segmented
// downloads keep their bytes in part files, which Finish does not count.
func localResultSize(req transfer.Request) int64 {
	if info, err := os.Stat(req.LocalPath); err == nil {
		return info.Size()
	}
	return 0
}

func remoteBase(remote string) string {
	if i := strings.LastIndex(remote, "/"); i >= 0 {
		return remote[i+1:]
	}
	return remote
}

func splitHostPort(s string) (string, int, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("no port")
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, err
	}
	return s[:i], port, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"DoodleBoard/internal/brush"
	"DoodleBoard/internal/config"
	"DoodleBoard/internal/editor"
	"DoodleBoard/internal/export"
	"DoodleBoard/internal/gallery"
	"DoodleBoard/internal/imagegen"
	"DoodleBoard/internal/lan"
	"DoodleBoard/internal/logging"
	"DoodleBoard/internal/relay"
	"DoodleBoard/internal/state"
	"DoodleBoard/internal/ui"
)

const usage = `usage: doodleboard [flags] [host | join <link> | serve | gallery]

  host     start a relay hub and draw on it (default)
  join     draw on a remote hub; <link> is doodleboard://ip:port or a ws:// URL
  serve    run the relay hub only
  gallery  list recently saved images
`

func main() {
	fs := pflag.NewFlagSet("doodleboard", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	configDir := fs.String("config-dir", ".", "directory containing doodleboard.json")
	discover := fs.Bool("discover", false, "join the first hub found on the LAN")
	_ = fs.Parse(os.Args[1:])

	if err := config.BindFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := config.Load(*configDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg := config.Current()
	log := logging.New(os.Stderr, cfg.LogLevel, true)

	role, link := "host", ""
	args := fs.Args()
	if len(args) > 0 {
		role = args[0]
		if len(args) > 1 {
			link = args[1]
		}
	}
	// A bare share link, as passed by a URL handler, means join.
	if strings.HasPrefix(role, lan.Scheme) {
		role, link = "join", role
	}

	var err error
	switch role {
	case "host":
		err = runHost(cfg, log)
	case "join":
		err = runJoin(cfg, log, link, *discover)
	case "serve":
		err = runServe(cfg, log)
	case "gallery":
		err = runGallery(cfg, os.Stdout)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("role", role).Msg("doodleboard failed")
	}
}

func startHub(cfg config.Config, log zerolog.Logger) (*relay.Hub, *mdns.Server, error) {
	hub, err := relay.NewHub(cfg.RelaySendBuffer, log)
	if err != nil {
		return nil, nil, err
	}
	if err := hub.Start(cfg.RelayListen); err != nil {
		return nil, nil, err
	}
	if !cfg.RelayAdvertise {
		return hub, nil, nil
	}
	adv, err := lan.Advertise(hubPort(hub), log)
	if err != nil {
		log.Warn().Err(err).Msg("mDNS advertise failed, share the link instead")
		return hub, nil, nil
	}
	return hub, adv, nil
}

func hubPort(hub *relay.Hub) int {
	if addr, ok := hub.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

func stopHub(hub *relay.Hub, adv *mdns.Server, log zerolog.Logger) {
	if adv != nil {
		_ = adv.Shutdown()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hub.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("hub shutdown")
	}
}

func runHost(cfg config.Config, log zerolog.Logger) error {
	hub, adv, err := startHub(cfg, log)
	if err != nil {
		return err
	}
	defer stopHub(hub, adv, log)

	port := hubPort(hub)
	ip, err := lan.OutgoingIP()
	if err != nil {
		log.Warn().Err(err).Msg("no LAN address, share link may not work")
	}
	shareLink := lan.ShareLink(ip, port)
	log.Info().Str("link", shareLink).Msg("hosting")

	return runEditor(cfg, log, "ws://"+net.JoinHostPort("127.0.0.1", strconv.Itoa(port))+"/ws", shareLink)
}

func runJoin(cfg config.Config, log zerolog.Logger, link string, discover bool) error {
	if link == "" {
		link = cfg.RelayURL
	}
	var url string
	switch {
	case link != "":
		u, err := lan.RelayURL(link)
		if err != nil {
			return err
		}
		url = u
	case discover:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		u, err := lan.Discover(ctx, 5*time.Second)
		if err != nil {
			return fmt.Errorf("discover hub: %w", err)
		}
		url = u
	default:
		return errors.New("join needs a link, --relay-url or --discover")
	}
	return runEditor(cfg, log, url, "")
}

func runServe(cfg config.Config, log zerolog.Logger) error {
	hub, adv, err := startHub(cfg, log)
	if err != nil {
		return err
	}
	defer stopHub(hub, adv, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")
	return nil
}

func runEditor(cfg config.Config, log zerolog.Logger, relayURL, shareLink string) error {
	session := state.NewSession(cfg.CanvasDevicePixelRatio)
	if c, err := brush.ParseColor(cfg.BrushColor); err != nil {
		log.Warn().Err(err).Msg("ignoring brush.color")
	} else {
		session.SetColor(brush.Hex(c))
	}
	session.SetWidth(cfg.BrushSize)

	ed := editor.New(session, editor.Config{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight}, log)

	client := relay.NewClient(ed, cfg.RelaySendBuffer, log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := client.Dial(ctx, relayURL)
	cancel()
	if err != nil {
		// Drawing still works offline.
		log.Warn().Err(err).Msg("relay unavailable, drawing locally")
	} else {
		ed.SetEmitter(client)
		defer client.Close()
	}

	store, err := gallery.Open(cfg.GalleryPath, log)
	if err != nil {
		log.Warn().Err(err).Msg("gallery unavailable")
	} else {
		defer store.Close()
	}

	ui.New(ui.Options{
		Editor:    ed,
		Exporter:  export.New(cfg.ExportDir),
		Gen:       imagegen.NewClient(cfg.ImagegenServerURL, cfg.ImagegenTimeout, log),
		Gallery:   store,
		ShareLink: shareLink,
		Log:       log,
	}).Run()
	return nil
}

func runGallery(cfg config.Config, out *os.File) error {
	store, err := gallery.Open(cfg.GalleryPath, zerolog.Nop())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), 20)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-3s  %s", e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Path)
		if e.Prompt != "" {
			line += fmt.Sprintf("  (%s: %q)", e.Mode, e.Prompt)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

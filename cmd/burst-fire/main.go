// Command burst-fire drives six AC heating elements with burst-fire control.
// Per-channel thresholds arrive over a serial command link; outputs switch on
// mains zero-crossings and are forced off when the link goes quiet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/burst-fire/internal/config"
	"github.com/sweeney/burst-fire/internal/gpio"
	"github.com/sweeney/burst-fire/internal/link"
	"github.com/sweeney/burst-fire/internal/logger"
	"github.com/sweeney/burst-fire/internal/logic"
	"github.com/sweeney/burst-fire/internal/mqtt"
	"github.com/sweeney/burst-fire/internal/status"
	"github.com/sweeney/burst-fire/internal/watchdog"
	"github.com/sweeney/burst-fire/internal/web"
)

const (
	// linkRetry is the delay before reopening a failed command link.
	linkRetry = time.Second

	// publishQueue bounds telemetry waiting for the broker.
	publishQueue = 64
)

func main() {
	configFile := flag.String("config", "/etc/burst-fire/config.yaml", "Path to YAML config (missing file uses defaults)")
	send := flag.String("send", "", "Send one transaction of six comma-separated thresholds (0-120) to the link port and exit")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	listPorts := flag.Bool("list-ports", false, "List serial ports and exit")

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	switch {
	case *printConfig:
		err = writeConfig(os.Stdout, cfg)
	case *listPorts:
		err = writePorts(os.Stdout)
	case *send != "":
		err = sendValues(cfg, *send)
	default:
		err = run(cfg)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writePorts(w io.Writer) error {
	ports, err := link.Ports()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

func sendValues(cfg *config.Config, s string) error {
	values, err := link.ParseValues(s)
	if err != nil {
		return err
	}
	port, err := link.OpenSerial(cfg.Link.Port, cfg.Link.BaudRate)
	if err != nil {
		return err
	}
	defer port.Close()
	return link.Send(port, values)
}

func run(cfg *config.Config) error {
	root, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	lg := root.Module("main")

	board, err := gpio.NewRealBoard(gpio.BoardConfig{
		Chip:         cfg.GPIO.Chip,
		ZeroCrossPin: cfg.GPIO.ZeroCrossPin,
		HeaterPins:   cfg.GPIO.HeaterPins,
		LEDPin:       cfg.GPIO.LEDPin,
		Edge:         cfg.GPIO.Edge,
		PullUp:       cfg.GPIO.PullUp,
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	var wd watchdog.Watchdog = watchdog.Nop{}
	if cfg.Watchdog.Device != "" {
		dev, err := watchdog.Open(cfg.Watchdog.Device, cfg.Watchdog.Timeout)
		if err != nil {
			return fmt.Errorf("init watchdog: %w", err)
		}
		wd = dev
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Nop{}
	var mqttDropped func() uint64
	if cfg.MQTT.Broker != "" {
		mqttLog := root.Module("mqtt")
		broker := mqtt.NewRealPublisher(mqttLog, cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
		async := mqtt.NewAsync(broker, mqttLog, publishQueue)
		publisher = async
		mqttDropped = async.Dropped
	}
	defer publisher.Close()

	startTime := time.Now()
	engine := logic.NewEngine(board, startTime)

	tracker := status.NewTracker(startTime, status.Config{
		PollMs:        cfg.Failsafe.PollInterval.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Status.Milliseconds(),
		LinkPort:      cfg.Link.Port,
		BaudRate:      cfg.Link.BaudRate,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		WatchdogDev:   cfg.Watchdog.Device,
		WatchdogMs:    cfg.Watchdog.Timeout.Milliseconds(),
		ZeroCrossEdge: cfg.GPIO.Edge,
	}, engine)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		lg.WithError(err).Warn("failed to publish startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	bytes := make(chan byte, 256)
	linkLog := root.Module("link").With(logger.Fields{"port": cfg.Link.Port})
	g.Go(func() error {
		return pumpLink(ctx, linkLog, func() (io.ReadCloser, error) {
			return link.OpenSerial(cfg.Link.Port, cfg.Link.BaudRate)
		}, bytes, linkRetry)
	})

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		httpLog := root.Module("http")
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// Heater control carries on without the status page.
				httpLog.WithError(err).Error("http server stopped")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		httpLog.Infof("status server listening on %s", cfg.HTTP.Addr)
	}

	lg.With(logger.Fields{
		"link":     cfg.Link.Port,
		"baud":     cfg.Link.BaudRate,
		"edge":     cfg.GPIO.Edge,
		"poll":     cfg.Failsafe.PollInterval,
		"watchdog": cfg.Watchdog.Device,
		"broker":   cfg.MQTT.Broker,
	}).Info("started")

	ticker := time.NewTicker(cfg.Failsafe.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		log:          lg,
		board:        board,
		engine:       engine,
		publisher:    publisher,
		mqttStatus:   publisher,
		tracker:      tracker,
		watchdog:     wd,
		dropped:      board.Dropped,
		mqttDropped:  mqttDropped,
		ledPeriod:    cfg.Heartbeat.LED,
		statusPeriod: cfg.Heartbeat.Status,
	}
	err = d.runLoop(time.Now, ticker.C, bytes, sigCh)

	cancel()
	if werr := g.Wait(); werr != nil {
		lg.WithError(werr).Warn("background task error")
	}
	return err
}

// pumpLink keeps the command link open, reopening it after retry whenever it
// fails, and delivers every received byte to out. It returns when ctx is done.
func pumpLink(ctx context.Context, lg *logger.Log, open func() (io.ReadCloser, error), out chan<- byte, retry time.Duration) error {
	for {
		port, err := open()
		if err != nil {
			lg.WithError(err).Warn("open command link")
		} else {
			lg.Info("command link open")
			err = link.Pump(ctx, port, out)
			port.Close()
			if err != nil {
				lg.WithError(err).Warn("command link failed")
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

// daemon owns the engine and everything the main loop touches.
type daemon struct {
	log        *logger.Log
	board      gpio.Board
	engine     *logic.Engine
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	watchdog   watchdog.Watchdog

	// dropped reports zero-cross edges discarded by the GPIO layer; may be nil.
	dropped func() uint64

	// mqttDropped reports telemetry refused by the publish queue; may be nil.
	mqttDropped func() uint64

	ledPeriod    time.Duration
	statusPeriod time.Duration // 0 disables the MQTT status heartbeat
}

// runLoop is the single dispatcher for zero-cross edges, link bytes and the
// supervisor tick. Serializing them here means the engine sees one event at a
// time, in arrival order. It returns after a signal, with every output off.
func (d *daemon) runLoop(now func() time.Time, tick <-chan time.Time, bytes <-chan byte, sig <-chan os.Signal) error {
	start := now()
	led := logic.NewHeartbeat(d.ledPeriod, start)
	if err := d.board.SetIndicator(led.On()); err != nil {
		d.log.WithError(err).Warn("set indicator")
	}
	nextStatus := start.Add(d.statusPeriod)
	outputFailing := false

	for {
		select {
		case s := <-sig:
			return d.shutdown(now(), s)

		case <-d.board.Edges():
			err := d.engine.OnZeroCross()
			// Log transitions only: edges arrive at twice the mains frequency.
			if err != nil && !outputFailing {
				d.log.WithError(err).Error("heater output failed")
			} else if err == nil && outputFailing {
				d.log.Info("heater outputs recovered")
			}
			outputFailing = err != nil

		case b, ok := <-bytes:
			if !ok {
				bytes = nil
				continue
			}
			if ev := d.engine.OnByte(b, now()); ev != nil {
				d.publish(*ev)
			}

		case <-tick:
			t := now()

			ev, err := d.engine.Tick(t)
			if err != nil {
				d.log.WithError(err).Error("failsafe could not switch every output off")
			}
			if ev != nil {
				d.publish(*ev)
			}

			if err := d.watchdog.Kick(); err != nil {
				d.log.WithError(err).Warn("watchdog kick")
			}

			if on, toggled := led.Check(t); toggled {
				if err := d.board.SetIndicator(on); err != nil {
					d.log.WithError(err).Warn("set indicator")
				}
			}

			d.refreshTracker()

			if d.statusPeriod > 0 && !t.Before(nextStatus) {
				nextStatus = t.Add(d.statusPeriod)
				d.publishStatus(t, "HEARTBEAT", "")
			}
		}
	}
}

func (d *daemon) publish(ev logic.Event) {
	lg := d.log.With(logger.Fields{
		"event":      ev.Type,
		"state":      ev.State,
		"thresholds": ev.Thresholds,
	})
	if ev.Type == logic.EventStopped {
		lg.Warn("command link silent, all heaters off")
	} else {
		lg.Info("thresholds committed")
	}
	if err := d.publisher.Publish(ev); err != nil {
		// Don't crash on publish failure
		d.log.WithError(err).Warn("publish error")
	}
}

func (d *daemon) refreshTracker() {
	if d.tracker == nil {
		return
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.dropped != nil {
		d.tracker.SetDroppedEdges(d.dropped())
	}
	if d.mqttDropped != nil {
		d.tracker.SetMQTTDropped(d.mqttDropped())
	}
}

func (d *daemon) publishStatus(t time.Time, event, reason string) {
	se := mqtt.SystemEvent{
		Timestamp: t,
		Event:     event,
		Reason:    reason,
		Retained:  event != "HEARTBEAT",
	}
	if d.tracker != nil {
		d.refreshTracker()
		se.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), event, reason)
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		d.log.WithError(err).Warnf("failed to publish %s event", event)
	}
}

func (d *daemon) shutdown(t time.Time, s os.Signal) error {
	d.log.Infof("received %v, shutting down", s)

	err := d.engine.Halt()
	if err != nil {
		d.log.WithError(err).Error("could not switch every output off")
	}
	if ierr := d.board.SetIndicator(false); ierr != nil {
		d.log.WithError(ierr).Warn("set indicator")
	}

	d.publishStatus(t, "SHUTDOWN", signalName(s))

	// Disarm last so a hang above still resets the machine.
	if werr := d.watchdog.Close(); werr != nil {
		d.log.WithError(werr).Warn("watchdog close")
	}
	return err
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

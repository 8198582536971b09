// Command headd drives an animatronic head from a vision host over a serial
// line: it decodes the newline-delimited JSON command protocol, runs the
// servo tracking loop, and restarts (by exiting) when the host link goes
// silent.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/headlink/internal/config"
	"github.com/banshee-data/headlink/internal/dispatch"
	"github.com/banshee-data/headlink/internal/linkmux"
	"github.com/banshee-data/headlink/internal/monitoring"
	"github.com/banshee-data/headlink/internal/servo"
	"github.com/banshee-data/headlink/internal/session"
	"github.com/banshee-data/headlink/internal/telemetry"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode (no serial or PWM hardware; use the debug listener to inject lines)")
	portPath    = flag.String("port", envOr("HEADLINK_PORT", "/dev/ttyACM0"), "Serial port to use (ignored in dev mode)")
	baudRate    = flag.Int("baud", envIntOr("HEADLINK_BAUD", linkmux.DefaultBaudRate), "Serial baud rate")
	listen      = flag.String("listen", envOr("HEADLINK_LISTEN", ""), "Debug HTTP listen address (empty disables)")
	tuningPath  = flag.String("tuning", envOr("HEADLINK_TUNING", ""), "Servo tuning JSON file (empty uses built-in defaults)")
	telemetryDB = flag.String("telemetry", envOr("HEADLINK_TELEMETRY", ""), "Telemetry sqlite path (empty disables)")
	pwmChip     = flag.String("pwm-chip", envOr("HEADLINK_PWM_CHIP", "/sys/class/pwm/pwmchip0"), "sysfs PWM chip directory")
	yawChannel  = flag.Int("pwm-yaw", 0, "PWM channel for the yaw servo")
	pitchChan   = flag.Int("pwm-pitch", 1, "PWM channel for the pitch servo")
)

// pollInterval paces the control cycle. Well under the 2s beacon period and
// fast enough that tracking updates feel continuous.
const pollInterval = 20 * time.Millisecond

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// logOverlay stands in for the face-rendering overlay, which lives outside
// this daemon. It records what would be drawn.
type logOverlay struct {
	log *monitoring.Logger
}

func (o *logOverlay) SetTime(s string)    { o.log.Debugf("[overlay] time %q", s) }
func (o *logOverlay) SetWeather(s string) { o.log.Debugf("[overlay] weather %q", s) }
func (o *logOverlay) SetText(s string)    { o.log.Debugf("[overlay] text %q", s) }

// logExpression stands in for the face expression engine. Unknown emotion
// keys are a silent no-op per the protocol contract.
type logExpression struct {
	log *monitoring.Logger
}

var knownEmotions = map[string]bool{
	"neutral": true, "happy": true, "sad": true, "angry": true,
	"surprised": true, "sleepy": true,
}

func (e *logExpression) HandleEmotion(key string) {
	if !knownEmotions[key] {
		return
	}
	e.log.Debugf("[face] emotion %q", key)
}

// logDisplay stands in for the display power collaborator.
type logDisplay struct {
	log *monitoring.Logger
}

func (d *logDisplay) SetUIMode(m dispatch.UIMode) {
	if m == dispatch.UISleep {
		d.log.Infof("[display] mode %s, screen off", m)
		return
	}
	d.log.Infof("[display] mode %s, screen on", m)
}

func main() {
	// .env is optional; flags and real env win over it.
	godotenv.Load()
	flag.Parse()

	logger := monitoring.New()

	cfg := config.EmptyTuningConfig()
	if *tuningPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	var pulses servo.PulseWriter = servo.NopPulseWriter{}
	if !*devMode {
		pwm, err := servo.NewSysfsPWM(*pwmChip, *yawChannel, *pitchChan)
		if err != nil {
			log.Fatalf("failed to open PWM chip %s: %v", *pwmChip, err)
		}
		defer pwm.Close()
		pulses = pwm
	}

	controller := servo.NewController(cfg.ServoTuning(), pulses, logger)
	if err := controller.Center(); err != nil {
		log.Fatalf("failed to center servos: %v", err)
	}

	var port linkmux.SerialPorter
	if *devMode {
		port = linkmux.NewTestablePort()
	} else {
		var err error
		port, err = linkmux.OpenPort(*portPath, linkmux.PortOptions{BaudRate: *baudRate})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *portPath, err)
		}
	}
	mux := linkmux.New[linkmux.SerialPorter](port)
	defer mux.Close()

	dispatcher := dispatch.New(
		&logOverlay{log: logger},
		&logExpression{log: logger},
		&logDisplay{log: logger},
		controller,
		logger,
		mux,
	)

	sess := session.New(mux, dispatcher, logger)

	var tdb *telemetry.DB
	if *telemetryDB != "" {
		var err error
		tdb, err = telemetry.Open(*telemetryDB)
		if err != nil {
			log.Fatalf("failed to open telemetry database: %v", err)
		}
		defer tdb.Close()
		sess.SetRecorder(tdb)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil {
			logger.Errorf("[link] monitor stopped: %v", err)
			stop()
		}
	}()

	if *listen != "" {
		httpMux := http.NewServeMux()
		mux.AttachAdminRoutes(httpMux, sess.Inject)
		srv := &http.Server{Addr: *listen, Handler: httpMux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("debug listener failed: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Shutdown(context.Background())
		}()
		logger.Infof("debug listener on %s", *listen)
	}

	if err := sess.Start(); err != nil {
		log.Fatalf("failed to start session: %v", err)
	}

	exitCode := run(ctx, sess, controller, tdb, logger)
	stop()
	mux.Close()
	wg.Wait()
	os.Exit(exitCode)
}

// run is the control loop. It returns the process exit code: 0 on signal
// shutdown, 2 when the watchdog requests a restart (the supervisor brings
// the daemon back up with a fresh transport).
func run(ctx context.Context, sess *session.Session, controller *servo.Controller, tdb *telemetry.DB, logger *monitoring.Logger) int {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	stateTicker := time.NewTicker(time.Second)
	defer stateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("shutting down")
			return 0

		case <-stateTicker.C:
			if !sess.RecentActivity() {
				logger.Debugf("[power] link idle, display may dim")
			}
			if tdb != nil {
				yawUs, pitchUs := controller.LastPulses()
				if err := tdb.RecordServoState(controller.CurrentYawDeg(), controller.CurrentPitchDeg(), yawUs, pitchUs); err != nil {
					logger.Warnf("failed to record servo state: %v", err)
				}
			}

		case <-ticker.C:
			if err := sess.Poll(); err != nil {
				if errors.Is(err, session.ErrRestartRequested) {
					logger.Errorf("restart requested, exiting for supervisor restart")
					return 2
				}
				logger.Errorf("poll failed: %v", err)
			}
		}
	}
}

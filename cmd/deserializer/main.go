package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uart2json/pkg/config"
	fx "github.com/robotalks/uart2json/pkg/framework"
	"github.com/robotalks/uart2json/pkg/ingest"
	"github.com/robotalks/uart2json/pkg/sink"
	"github.com/robotalks/uart2json/pkg/uart"
)

var statsInterval = time.Minute

func init() {
	config.SetupFlags()
	flag.DurationVar(&statsInterval, "stats-interval", statsInterval, "Interval of stats logging at -v=1, 0 disables")
}

// inert keeps the process alive without doing anything until stopped.
// The port is never retried.
func inert(err error) {
	glog.Errorf("UART initialization failed: %v", err)
	fx.NewRunner().HandleSignals().Go(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})).Wait()
}

func reportStats(loop *ingest.Loop) fx.Runnable {
	return fx.NamedRun("stats", fx.RunFunc(func(ctx context.Context) error {
		if statsInterval <= 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				glog.V(1).Infof("stats: %v", loop.Stats())
				return ctx.Err()
			case <-ticker.C:
				glog.V(1).Infof("stats: %v", loop.Stats())
			}
		}
	}))
}

func newSinks(conf *config.Config) (*sink.Mux, error) {
	mux := &sink.Mux{}
	mux.Add(sink.Log{})
	if conf.Sink.Stdout {
		mux.Add(sink.NewWriter(os.Stdout))
	}
	if conf.Sink.MQTT != "" {
		s, err := sink.NewMQTT(conf.Sink.MQTT, conf.Device, sink.DeviceMeta{
			Description: "UART to JSON deserializer",
			Port:        conf.Serial.Port,
			BaudRate:    conf.Serial.BaudRate,
		})
		if err != nil {
			return nil, err
		}
		mux.Add(s)
	}
	if conf.Sink.Websocket != "" {
		mux.Add(sink.NewWebsocket(conf.Sink.Websocket))
	}
	return mux, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.NewConfig()
	var initErr *uart.InitError
	if errors.As(err, &initErr) {
		inert(err)
		return
	}
	if err != nil {
		glog.Exit(err)
	}
	settings, err := conf.UART()
	if err != nil {
		inert(err)
		return
	}
	port, err := uart.Configure(settings)
	if err != nil {
		inert(err)
		return
	}

	mux, err := newSinks(conf)
	if err != nil {
		port.Close()
		inert(err)
		return
	}
	loop := ingest.New(port, port.Events(), mux, conf.Ingest())
	// Only InitError stops the daemon, failed drivers or sinks stay inert.
	r := fx.NewRunner().HandleSignals().Go(fx.Resident(port), loop, reportStats(loop))
	for _, sinkRunner := range mux.Runnables() {
		r.Go(fx.Resident(sinkRunner))
	}
	err = r.Wait()
	if err != nil {
		glog.Exit(err)
	}
}

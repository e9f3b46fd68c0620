package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/uart2json/pkg/config"
	fx "github.com/robotalks/uart2json/pkg/framework"
	"github.com/robotalks/uart2json/pkg/mqtt"
	"github.com/robotalks/uart2json/pkg/sink"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := config.Default().Sink.MQTT; val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}

	out := sink.NewWriter(os.Stdout)
	q.Sub("+/+/"+sink.TopicMeta, mqtt.Handler(func(topic string, payload []byte) {
		if len(payload) == 0 {
			glog.Infof("%s: gone", strings.TrimSuffix(topic, "/"+sink.TopicMeta))
			return
		}
		glog.Infof("%s: %s", topic, string(payload))
	}))
	q.Sub("+/+/"+sink.TopicJSON, mqtt.Handler(func(topic string, payload []byte) {
		out.Emit(strings.TrimSuffix(topic, "/"+sink.TopicJSON)+" "+string(payload), len(payload))
	}))

	err = fx.NewRunner().HandleSignals().Go(fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, q, func() error {
			if token := q.Connect(); token.Wait() && token.Error() != nil {
				return token.Error()
			}
			<-ctx.Done()
			return nil
		})
	})).Wait()
	if err != nil {
		glog.Exit(err)
	}
}

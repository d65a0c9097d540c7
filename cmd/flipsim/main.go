package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/flipbot/pkg/env"
	"github.com/robotalks/flipbot/pkg/firmware"
	fx "github.com/robotalks/flipbot/pkg/framework"
	"github.com/robotalks/flipbot/pkg/sim"
	"github.com/robotalks/flipbot/pkg/telemetry"
)

var (
	configFile string
	wsAddr     = ":8033"
)

func init() {
	env.SetupFlags()
	firmware.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "Firmware config YAML file")
	flag.StringVar(&wsAddr, "ws", wsAddr, "Websocket telemetry listen address, empty to disable")
}

func main() {
	flag.Parse()

	conf := firmware.NewConfig()
	if configFile != "" {
		var err error
		if conf, err = firmware.LoadConfig(configFile); err != nil {
			log.Fatalf("load config %s: %v", configFile, err)
		}
	}
	envConf := env.NewConfig()
	if err := envConf.Validate(); err != nil {
		log.Fatalln(err)
	}

	s, err := sim.New(conf, envConf.Topics())
	if err != nil {
		log.Fatalln(err)
	}

	pub := &telemetry.Publisher{Source: s.Status}
	runner := fx.NewRunner().HandleSignals()

	if envConf.MQTTBrokerURL != "" {
		q, err := envConf.NewQueue()
		if err != nil {
			log.Fatalln(err)
		}
		defer q.Close()
		s.Subscribe(q)
		pub.Sinks = append(pub.Sinks, &telemetry.MQTTSink{Queue: q, Topic: s.Topics.Status()})
	}
	if wsAddr != "" {
		sink := telemetry.NewWebsocketSink()
		pub.Sinks = append(pub.Sinks, sink)
		runner.Go(&telemetry.Server{Addr: wsAddr, Sink: sink})
	}

	glog.Infof("simulating %s", s.Topics.Base())
	if err := runner.Go(s, pub).Wait(); err != nil {
		log.Fatalln(err)
	}
}

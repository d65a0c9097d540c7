package main

import (
	"flag"
	"log"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/flipbot/pkg/env"
	"github.com/robotalks/flipbot/pkg/telemetry"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.NewConfig()
	q, err := telemetry.NewQueueFromURL(conf.MQTTBrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(telemetry.StatusPattern(conf.Type), func(topic string, payload []byte) {
		var m telemetry.Status
		if err := proto.Unmarshal(payload, &m); err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, m.String())
	})
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}

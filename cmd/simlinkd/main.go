package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/simlink/simlink.go/pkg/framework"
	"github.com/simlink/simlink.go/pkg/input"
	"github.com/simlink/simlink.go/pkg/mqtt"
	"github.com/simlink/simlink.go/pkg/session"
)

var (
	device    = "/dev/ttyUSB0"
	baud      = session.DefaultBaud
	mqttURL   = ""
	inputConf = ""
)

func init() {
	if val := os.Getenv("SIMLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&device, "device", device, "Serial device of the transmitter module.")
	flag.IntVar(&baud, "baud", baud, "Serial baud rate.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL, empty to disable.")
	flag.StringVar(&inputConf, "input-config", inputConf, "TOML input calibration file.")
	input.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	port, err := session.OpenSerial(device, baud)
	if err != nil {
		log.Fatalln(err)
	}
	defer port.Close()
	sess := session.New(port)

	loop := framework.NewLoop().Add(framework.TickFunc(func(now time.Time) error {
		if err := sess.Tick(now); err != nil {
			return err
		}
		return sess.HandleRx()
	}))

	if mqttURL != "" {
		conf := input.Default()
		if inputConf != "" {
			if conf, err = input.LoadConfig(inputConf); err != nil {
				log.Fatalln(err)
			}
		}

		opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
		if err != nil {
			log.Fatalln(err)
		}
		if opts.ClientID == "" {
			opts.SetClientID(mqtt.ClientID("simlinkd"))
		}
		q := mqtt.NewQueue(opts, prefix)
		bridge := mqtt.NewBridge(q, sess)
		bridge.Mapper = conf.NewMapper()
		bridge.Start()
		q.Connect()
		defer q.Close()
		loop.Add(bridge)
	}

	if err := framework.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		log.Fatalln(err)
	}
}

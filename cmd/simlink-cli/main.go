package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/simlink/simlink.go/pkg/cli"
	"github.com/simlink/simlink.go/pkg/session"
)

var (
	device = "/dev/ttyUSB0"
	baud   = session.DefaultBaud
)

func init() {
	flag.StringVar(&device, "device", device, "Default serial device for the open command.")
	flag.IntVar(&baud, "baud", baud, "Default serial baud rate.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	if err := cli.New(device, baud).Run(flag.Args()); err != nil {
		log.Fatalln(err)
	}
}

package main

import (
	"context"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/ds1307"
	"bootcode-go/platform"
	"bootcode-go/services/boot"
	"bootcode-go/services/config"
	"bootcode-go/services/heartbeat"
	"bootcode-go/services/rtc"
	"bootcode-go/x/strx"
)

// device overrides the board's config name: -ldflags "-X main.device=..."
var device string

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	board, err := platform.Open()
	if err != nil {
		println("[main] platform:", err.Error())
		select {}
	}

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, strx.Coalesce(device, board.Name))
	b := bus.NewBus(8)

	dev := ds1307.New(board.I2C)
	clock := rtc.New(&dev)
	if err := clock.Start(ctx, b.NewConnection("rtc")); err != nil {
		println("[main] rtc:", err.Error())
	}

	loader := boot.New(board.Flash, board.Layout, board.CPU)
	loader.SetClock(clock)
	if err := loader.Start(ctx, b.NewConnection("boot")); err != nil {
		println("[main] boot:", err.Error())
		select {}
	}

	hb := &heartbeat.Service{Clock: clock}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	// Config last: services read it from the retained messages.
	if err := config.NewConfigService().Start(ctx, b.NewConnection("config")); err != nil {
		println("[main] config:", err.Error())
	}

	go boot.ServeSerial(ctx, board.Serial, b.NewConnection("serial"), boot.SerialConfig{})

	select {}
}

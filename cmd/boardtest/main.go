// cmd/boardtest/main.go
//
// Board bring-up check for the bootloader hardware. It reads the RTC and the
// installed image header over the bus and never erases or launches.
package main

import (
	"context"
	"runtime"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/ds1307"
	"bootcode-go/platform"
	"bootcode-go/services/boot"
	"bootcode-go/services/rtc"
	"bootcode-go/types"
	"bootcode-go/x/conv"
)

// ---------- Configuration ----------

const (
	replyTimeout = 2 * time.Second
	period       = 5 * time.Second
)

// ---------- Helpers ----------

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		switch v := tok.(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func request(c *bus.Connection, t bus.Topic, payload any) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	m, err := c.RequestWait(ctx, c.NewMessage(t, payload, false))
	if err != nil {
		println("[boardtest] no reply:", err.Error())
		return nil, false
	}
	return m.Payload, true
}

func checkRTC(c *bus.Connection) bool {
	p, ok := request(c, rtc.TopicControl.Append("get"), nil)
	if !ok {
		return false
	}
	switch v := p.(type) {
	case types.RTCTime:
		println("[boardtest] rtc", v.ISO, "halted:", v.Halted)
		return !v.Halted
	case types.RTCReply:
		println("[boardtest] rtc error:", v.Code, v.Error)
	}
	return false
}

func checkImage(c *bus.Connection) bool {
	p, ok := request(c, boot.TopicControl.Append("status"), nil)
	if !ok {
		return false
	}
	in, ok := p.(types.BootInfo)
	if !ok {
		return false
	}
	var b [8]byte
	println("[boardtest] partition 0x"+string(conv.U32Hex(b[:], in.AppStart)), "..",
		"0x"+string(conv.U32Hex(b[:], in.AppEnd)), "state", string(in.State.Level))
	if !in.Valid {
		println("[boardtest] no valid image:", in.Error)
	}
	return true
}

// printMem prints a compact snapshot of runtime memory stats without fmt.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	var b [20]byte
	line := "[mem] alloc: " + string(conv.Utoa(b[:], ms.Alloc))
	line += " heapSys: " + string(conv.Utoa(b[:], ms.HeapSys))
	line += " live: " + string(conv.Itoa(b[:], int64(ms.Mallocs)-int64(ms.Frees)))
	println(line)
}

// ---------- Main ----------

func main() {
	time.Sleep(3 * time.Second)
	ctx := context.Background()

	board, err := platform.Open()
	if err != nil {
		println("[boardtest] platform:", err.Error())
		return
	}

	b := bus.NewBus(4)
	ui := b.NewConnection("ui")

	mon := ui.Subscribe(bus.T("boot", "#"))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	dev := ds1307.New(board.I2C)
	if err := rtc.New(&dev).Start(ctx, b.NewConnection("rtc")); err != nil {
		println("[boardtest] rtc:", err.Error())
		return
	}
	// No config service: auto-launch stays off.
	if err := boot.New(board.Flash, board.Layout, board.CPU).Start(ctx, b.NewConnection("boot")); err != nil {
		println("[boardtest] boot:", err.Error())
		return
	}

	for {
		pass := checkRTC(ui)
		pass = checkImage(ui) && pass
		if pass {
			println("[boardtest] PASS")
		} else {
			println("[boardtest] FAIL")
		}
		printMem()
		time.Sleep(period)
	}
}

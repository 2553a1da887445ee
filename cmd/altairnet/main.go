// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ezrec/altairnet/bus"
	"github.com/ezrec/altairnet/chat"
	"github.com/ezrec/altairnet/config"
	"github.com/ezrec/altairnet/machine"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func main() {
	var configFile string
	var model string
	var stats bool
	var verbose bool

	flag.StringVar(&configFile, "c", "", "Starlark configuration file")
	flag.StringVar(&model, "m", "", "Model override")
	flag.BoolVar(&stats, "s", false, "Print statistics on exit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	cfg := config.Default()
	if len(configFile) != 0 {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			log.Fatalf("%v: %v", configFile, err)
		}
	}
	if verbose {
		cfg.Verbose = true
	}
	if len(model) != 0 {
		cfg.Model = model
	}
	if len(cfg.APIKey) == 0 {
		log.Fatalf("%v: no API key; set OPENAI_API_KEY or api_key in the configuration", os.Args[0])
	}

	prompt := strings.Join(flag.Args(), " ")
	if len(prompt) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if len(prompt) == 0 {
		log.Fatalf("%v: empty prompt", os.Args[0])
	}

	body, err := json.Marshal(chatRequest{
		Model:    cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		log.Fatal(err)
	}
	if len(body) > chat.MaxContentLength {
		log.Fatalf("%v: request body %v bytes exceeds maximum %v", os.Args[0], len(body), chat.MaxContentLength)
	}

	m, err := machine.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	m.Start(cfg.PollInterval)
	defer m.Close()

	if cfg.Verbose {
		log.Printf("%v", banner(m))
	}

	if err := exchange(m, cfg.PollInterval, body); err != nil {
		log.Fatal(err)
	}

	if stats {
		m.Close()
		for key, value := range m.Stats() {
			fmt.Fprintf(os.Stderr, "%v: %v\n", key, value)
		}
	}
}

// banner reads the version string the way a boot program would.
func banner(m *machine.Machine) string {
	m.Out(bus.PortVersion, 0)

	var text []byte
	for range bus.StagingSize {
		value := m.In(bus.ReadBufferPort)
		if value == 0 {
			break
		}
		text = append(text, value)
	}

	return strings.TrimSpace(string(text))
}

// exchange drives the chat device through its port protocol, exactly as an
// emulated program would: declare and trigger, upload with busy throttling,
// then poll and echo the streamed tokens.
func exchange(m *machine.Machine, interval time.Duration, body []byte) (err error) {
	m.Out(chat.PortResetRequest, 0)
	m.Out(chat.PortResetResponse, 0)
	m.Out(chat.PortLengthLow, uint8(len(body)))
	m.Out(chat.PortLengthHigh, uint8(len(body)>>8))

	if m.In(chat.PortResetRequest) != 1 {
		err = fmt.Errorf("request rejected")
		return
	}

	throttle := func() chat.Status {
		for {
			status := chat.Status(m.In(chat.PortStatus))
			if status != chat.StatusBusy {
				return status
			}
			time.Sleep(interval)
		}
	}

	for _, value := range body {
		throttle()
		m.Out(chat.PortAppendByte, value)
	}
	throttle()
	m.Out(chat.PortAppendByte, 0)

	for {
		switch status := throttle(); status {
		case chat.StatusDataReady:
			os.Stdout.Write([]byte{m.In(chat.PortReadByte)})
		case chat.StatusWaiting:
			time.Sleep(interval)
		case chat.StatusEOF:
			fmt.Println()
			return
		case chat.StatusFailed:
			err = fmt.Errorf("request failed")
			return
		}
	}
}

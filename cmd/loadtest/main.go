package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aeolun/multichat/pkg/client"
)

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum."

var loremWords = strings.Fields(loremIpsum)

// Stats tracks performance metrics across all simulated clients.
type Stats struct {
	messagesSent     atomic.Int64
	linesReceived    atomic.Int64
	sendFailures     atomic.Int64
	connectionErrors atomic.Int64
	rejectedFull     atomic.Int64
	disconnections   atomic.Int64
}

func (s *Stats) report() string {
	return fmt.Sprintf("sent=%d received=%d send_failures=%d conn_errors=%d rejected_full=%d disconnects=%d",
		s.messagesSent.Load(),
		s.linesReceived.Load(),
		s.sendFailures.Load(),
		s.connectionErrors.Load(),
		s.rejectedFull.Load(),
		s.disconnections.Load())
}

func randomMessage(rng *rand.Rand) string {
	n := 3 + rng.Intn(10)
	words := make([]string, n)
	for i := range words {
		words[i] = loremWords[rng.Intn(len(loremWords))]
	}
	return strings.Join(words, " ")
}

func main() {
	serverAddr := flag.String("server", "localhost:12345", "Server address (host:port, tcp://, ssh:// or ws://)")
	clients := flag.Int("clients", 50, "Number of concurrent clients")
	rooms := flag.Int("rooms", 5, "Number of rooms to spread clients across")
	interval := flag.Duration("interval", 500*time.Millisecond, "Mean delay between messages per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	pmRatio := flag.Float64("pm-ratio", 0.1, "Fraction of messages sent as PMs")
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Printf("Load test: %d clients, %d rooms, %v interval, %v duration against %s",
		*clients, *rooms, *interval, *duration, *serverAddr)

	stats := &Stats{}
	stop := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Printf("Interrupted, stopping...")
			close(stop)
		case <-time.After(*duration):
			close(stop)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(id, *serverAddr, *clients, *rooms, *interval, *pmRatio, stats, stop)
		}(i)
		// Stagger connections so the accept queue doesn't spike.
		time.Sleep(10 * time.Millisecond)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				log.Printf("progress: %s", stats.report())
			case <-stop:
				return
			}
		}
	}()

	wg.Wait()
	log.Printf("final: %s", stats.report())
}

// runClient drives one simulated user: nick, join, then a loop of room
// messages with the occasional PM, until the stop signal.
func runClient(id int, addr string, clients, rooms int, interval time.Duration, pmRatio float64, stats *Stats, stop <-chan struct{}) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	conn, err := client.NewConnection(addr)
	if err != nil {
		stats.connectionErrors.Add(1)
		return
	}
	if err := conn.Connect(); err != nil {
		stats.connectionErrors.Add(1)
		return
	}
	defer conn.Close()

	name := fmt.Sprintf("loadtest_%d", id)
	room := fmt.Sprintf("load_%d", id%rooms)

	rejected := make(chan struct{})
	gone := make(chan struct{})
	go func() {
		for line := range conn.Lines() {
			stats.linesReceived.Add(1)
			if line == "Server full" {
				close(rejected)
				return
			}
		}
		stats.disconnections.Add(1)
		close(gone)
	}()

	send := func(line string) bool {
		if err := conn.Send(line); err != nil {
			stats.sendFailures.Add(1)
			return false
		}
		return true
	}

	if !send("/nick "+name) || !send("/join "+room) {
		return
	}

	for {
		// Jitter around the mean so clients don't send in lockstep.
		delay := interval/2 + time.Duration(rng.Int63n(int64(interval)))
		select {
		case <-stop:
			send("/quit")
			return
		case <-rejected:
			stats.rejectedFull.Add(1)
			return
		case <-gone:
			return
		case <-time.After(delay):
		}

		var line string
		if rng.Float64() < pmRatio {
			target := fmt.Sprintf("loadtest_%d", rng.Intn(clients))
			line = fmt.Sprintf("/pm %s %s", target, randomMessage(rng))
		} else {
			line = randomMessage(rng)
		}
		if !send(line) {
			return
		}
		stats.messagesSent.Add(1)
	}
}

// Package lifecycle reacts to process and host application lifecycle changes
// by starting and stopping frame monitoring.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// KillListener stops monitoring when the process is asked to terminate. It
// only holds the registered stop function and never owns the monitor.
type KillListener struct {
	m       sync.Mutex
	stop    func()
	signals chan os.Signal
	done    chan struct{}
}

func NewKillListener() *KillListener {
	return &KillListener{}
}

// Register replaces the stop handle invoked on termination.
func (k *KillListener) Register(stop func()) {
	k.m.Lock()
	defer k.m.Unlock()

	k.stop = stop
}

func (k *KillListener) Unregister() {
	k.Register(nil)
}

// Kill runs the registered stop handle, if any, at most once per
// registration.
func (k *KillListener) Kill() {
	k.m.Lock()
	stop := k.stop
	k.stop = nil
	k.m.Unlock()

	if stop == nil {
		log.Debug("Kill listener triggered without a registered monitor")
		return
	}

	log.Info("Stopping frame monitoring before exit")
	stop()
}

// Listen calls Kill and then onExit when SIGINT or SIGTERM is received.
func (k *KillListener) Listen(onExit func()) {
	k.m.Lock()
	if k.signals != nil {
		k.m.Unlock()
		return
	}
	k.signals = make(chan os.Signal, 1)
	k.done = make(chan struct{})
	signals, done := k.signals, k.done
	k.m.Unlock()

	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-signals:
			log.Debugf("received %s", sig)
			k.Kill()
			if onExit != nil {
				onExit()
			}
		case <-done:
		}
	}()
}

// Close stops listening for signals.
func (k *KillListener) Close() {
	k.m.Lock()
	defer k.m.Unlock()

	if k.signals == nil {
		return
	}
	signal.Stop(k.signals)
	close(k.done)
	k.signals, k.done = nil, nil
}

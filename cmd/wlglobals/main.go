// wlglobals lists the globals advertised by the Wayland server and the
// pixel formats that its wl_shm supports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/internal/debug"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log := debug.Log

	client, err := wl.Dial()
	if err != nil {
		log.WithError(err).Fatal("dial")
	}
	defer client.Close()
	client.Display().Error = func(err *wl.ProtocolError) {
		log.WithField("object", err.ObjectID).WithField("code", err.Code).Error(err.Message)
	}

	registry := client.Display().GetRegistry()
	err = client.RoundTrip(ctx)
	if err != nil {
		log.WithError(err).Fatal("round trip")
	}

	for _, g := range registry.Sorted() {
		fmt.Printf("%v v%v: %v\n", g.Interface, g.Version, g.Name)
	}

	binder := wl.NewBinder(registry)
	shm := wl.NewShm(client)
	_, err = binder.Bind(shm, 1, wl.ShmVersion)
	if err != nil {
		log.WithError(err).Warn("no shm")
		return
	}
	err = binder.Confirm(ctx)
	if err != nil {
		log.WithError(err).Fatal("bind shm")
	}

	fmt.Println("formats:")
	for _, f := range shm.Formats() {
		fmt.Printf("    %v\n", f)
	}
}

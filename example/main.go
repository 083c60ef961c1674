// Command example plays an ICY stream while printing metadata updates,
// demonstrating the audio channel handed out by the stream event.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto"

	"github.com/saftigesloch/icecast-parser/pkg/icy"
)

func main() {
	url := flag.String("url", "", "stream or playlist URL")
	flag.Parse()

	if *url == "" {
		fmt.Println("You must specify a URL with the -url flag.")
		os.Exit(1)
	}

	done := make(chan error, 1)

	radio := icy.New(*url,
		// hold one connection open and let metadata ride along with the audio
		icy.WithKeepListen(true),
		icy.WithMetadataCallback(func(m icy.Metadata) {
			fmt.Println("Now playing:", m.StreamTitle())
		}),
		icy.WithEmptyCallback(func() {
			fmt.Println("Stream carries no metadata, retrying later.")
		}),
		icy.WithErrorCallback(func(err error) {
			fmt.Println("Connection failed:", err)
		}),
		icy.WithStreamCallback(func(d *icy.Demuxer) {
			go func() { done <- play(d) }()
		}),
	)
	defer radio.Stop()

	if err := <-done; err != nil && err != io.EOF {
		fmt.Println("Playback ended:", err)
		os.Exit(1)
	}
}

func play(d *icy.Demuxer) error {
	decoder, err := mp3.NewDecoder(d)
	if err != nil {
		return err
	}

	ctx, err := oto.NewContext(decoder.SampleRate(), 2, 2, 8192)
	if err != nil {
		return err
	}
	defer ctx.Close()

	player := ctx.NewPlayer()
	defer player.Close()

	_, err = io.Copy(player, decoder)
	return err
}

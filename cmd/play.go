package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryogon/rizumu-udio/player"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

type PlayParams struct {
	Input  string  `pos:"true" required:"true" help:"Track URL, search term, or tag selector (tag:jazz / #jazz)."`
	Start  float64 `help:"Section start in seconds." default:"0"`
	End    float64 `help:"Section end in seconds. Enables section looping when greater than start." default:"0"`
	Repeat int     `short:"r" help:"Section repetitions, 0 loops until interrupted." default:"0"`
	Volume float64 `short:"v" help:"Volume between 0 and 1." default:"1"`
	Rate   float64 `help:"Playback rate between 0.5 and 4." default:"1"`
	Loop   bool    `short:"l" help:"Loop the whole track." default:"false"`
}

func (p *PlayParams) section() (player.Section, bool) {
	if p.End <= p.Start {
		return player.Section{}, false
	}
	return player.Section{
		Start:       time.Duration(p.Start * float64(time.Second)),
		End:         time.Duration(p.End * float64(time.Second)),
		Repetitions: p.Repeat,
	}, true
}

func PlayCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:         "play",
		Short:       "Play one track in the foreground until it ends",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := RunPlay(ctx, params); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunPlay(ctx context.Context, params *PlayParams) error {
	app, err := NewApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	return playUntilEnded(ctx, app.Player, player.ParseInput(params.Input), params, func(msg string) {
		fmt.Println(msg)
	})
}

// playUntilEnded blocks until the track ends, playback fails or ctx is cancelled.
func playUntilEnded(ctx context.Context, ctrl *player.Controller, in player.Input, params *PlayParams, say func(string)) error {
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	endedID := ctrl.AddEventListener(player.EventEnded, func(player.EventData) {
		// the section loop restarts a section that runs to the end of the track
		if ctrl.State().Section == nil {
			finish(nil)
		}
	})
	defer ctrl.RemoveEventListener(player.EventEnded, endedID)

	vol := params.Volume
	track, err := ctrl.Play(ctx, in, player.LoadOptions{Volume: &vol, PlaybackRate: params.Rate, Loop: params.Loop})
	if err != nil {
		return err
	}
	say(fmt.Sprintf("Playing %s - %s", track.Artist, track.Title))

	// registered after loading so load failures are reported by Play
	errorID := ctrl.AddEventListener(player.EventError, func(ev player.EventData) {
		if ev.Err == nil {
			ev.Err = player.ErrPlayback
		}
		finish(ev.Err)
	})
	defer ctrl.RemoveEventListener(player.EventError, errorID)

	if sec, ok := params.section(); ok {
		if err := ctrl.LoopSection(sec); err != nil {
			return err
		}
		say(fmt.Sprintf("Looping %s to %s", sec.Start, sec.End))
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

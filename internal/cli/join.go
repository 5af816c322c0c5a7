package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahmedasif11/let-meet-sub000/internal/config"
	"github.com/ahmedasif11/let-meet-sub000/internal/media"
	"github.com/ahmedasif11/let-meet-sub000/internal/rtc"
	"github.com/ahmedasif11/let-meet-sub000/internal/signaling"
)

var (
	flagJoinName     string
	flagJoinAvatar   string
	flagJoinConfig   string
	flagJoinDomain   string
	flagJoinServer   string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
	flagJoinNoVideo  bool
	flagJoinNoAudio  bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a meeting room",
	Long: `Join a meeting room through the signaling relay.

The first participant to join a fresh room id becomes its admin and
approves everyone who follows. This client auto-approves join requests
when it is the admin.

While in a call, SIGUSR1 toggles the video announcement and SIGUSR2
the audio announcement.

Examples:
  letmeet join abc123 --name Alice
  letmeet join abc123 --name Bob --no-video`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func init() {
	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "display name announced to the room")
	joinCmd.Flags().StringVar(&flagJoinAvatar, "avatar", "", "avatar reference announced to the room")
	joinCmd.Flags().StringVar(&flagJoinConfig, "config", "", "path to a TOML config file")
	joinCmd.Flags().StringVar(&flagJoinDomain, "domain", "", "relay server domain")
	joinCmd.Flags().StringVar(&flagJoinServer, "server", "", "relay websocket URL (overrides --domain)")
	joinCmd.Flags().StringVar(&flagJoinSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagJoinTURN, "turn", "", "TURN server host")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagJoinNoVideo, "no-video", false, "join without a video track")
	joinCmd.Flags().BoolVar(&flagJoinNoAudio, "no-audio", false, "join without an audio track")
	rootCmd.AddCommand(joinCmd)
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		ConfigFile: flagJoinConfig,
		Domain:     flagJoinDomain,
		ServerURL:  flagJoinServer,
		STUNServer: flagJoinSTUN,
		TURNServer: flagJoinTURN,
		TURNUser:   flagJoinTURNUser,
		TURNPass:   flagJoinTURNPass,
	})
	if err != nil {
		return err
	}

	videoEnabled := !flagJoinNoVideo
	audioEnabled := !flagJoinNoAudio

	mediaReg := media.NewRegistry()
	if videoEnabled || audioEnabled {
		stream, err := media.NewSyntheticSource(videoEnabled, audioEnabled)
		if err != nil {
			return err
		}
		mediaReg.SetLocal(stream)
	}

	transport := signaling.NewClient(cfg.WebSocketURL)
	if err := transport.Connect(); err != nil {
		return err
	}

	turnUser, turnPass := cfg.GetTURNCredentials()
	iceCfg := rtc.ICEConfiguration(cfg.GetSTUNServers(), cfg.GetTURNServers(), turnUser, turnPass)
	adapter := rtc.NewAdapter(
		transport,
		mediaReg,
		func() (*media.LocalStream, error) {
			return media.NewSyntheticSource(videoEnabled, audioEnabled)
		},
		iceCfg,
		rtc.Timeouts{
			Offer:        cfg.OfferTimeout,
			Connection:   cfg.ConnectionTimeout,
			ICEGathering: cfg.ICEGatheringTimeout,
		},
	)

	session := NewSession(SessionOptions{
		Transport:    transport,
		Adapter:      adapter,
		Media:        mediaReg,
		RoomID:       roomID,
		Name:         flagJoinName,
		Avatar:       flagJoinAvatar,
		VideoEnabled: videoEnabled,
		AudioEnabled: audioEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toggles := make(chan os.Signal, 1)
	signal.Notify(toggles, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(toggles)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-toggles:
				switch sig {
				case syscall.SIGUSR1:
					videoEnabled = !videoEnabled
				case syscall.SIGUSR2:
					audioEnabled = !audioEnabled
				}
				slog.Info("media toggled", "video", videoEnabled, "audio", audioEnabled)
				session.SetMediaStatus(videoEnabled, audioEnabled)
			}
		}
	}()

	slog.Info("joining room", "room", roomID, "server", cfg.WebSocketURL)
	return session.Run(ctx)
}

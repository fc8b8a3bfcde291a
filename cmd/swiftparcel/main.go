// Command swiftparcel is a terminal client for the SwiftParcel delivery
// platform: login, live delivery tracking and the notification center.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swiftparcel/client-go/internal/config"
	"github.com/swiftparcel/client-go/internal/notify"
	"github.com/swiftparcel/client-go/internal/version"
	"github.com/swiftparcel/client-go/pkg/logger"
	"github.com/swiftparcel/client-go/pkg/types"
	"github.com/swiftparcel/client-go/sdk"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "swiftparcel",
		Short:         "SwiftParcel delivery tracking client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		loginCommand(),
		logoutCommand(),
		trackCommand(),
		notificationsCommand(),
		sendCommand(),
		versionCommand(),
	)
	return root
}

func newClient() (*sdk.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return sdk.NewClient(sdk.Options{Config: cfg})
}

func loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			profile := client.Profile()
			color.Green("Logged in as %s", profile.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			client.Logout()
			color.Yellow("Logged out")
			return nil
		},
	}
}

func trackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "track <delivery-uid>",
		Short: "Follow a delivery live until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.Authenticated() {
				return fmt.Errorf("not logged in, run 'swiftparcel login' first")
			}

			deliveryUID := args[0]
			client.SetListener(&trackingListener{client: client, deliveryUID: deliveryUID})
			client.Connect()
			client.SubscribeDelivery(cmd.Context(), deliveryUID)

			color.Cyan("Tracking delivery %s (Ctrl+C to stop)", deliveryUID)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

func notificationsCommand() *cobra.Command {
	var unreadOnly bool
	var markAllRead bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List durable notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.Authenticated() {
				return fmt.Errorf("not logged in, run 'swiftparcel login' first")
			}

			if err := client.LoadNotifications(cmd.Context(), 1, unreadOnly); err != nil {
				return err
			}
			for _, n := range client.Notifications() {
				marker := color.New(color.FgHiBlack).Sprint("·")
				if !n.IsRead {
					marker = color.New(color.FgYellow, color.Bold).Sprint("●")
				}
				fmt.Printf("%s [%s] %s: %s\n", marker, n.Priority, n.Title, n.Message)
			}
			color.Cyan("%d unread", client.UnreadCount())

			if markAllRead {
				if err := client.MarkAllRead(cmd.Context()); err != nil {
					return err
				}
				color.Green("All notifications marked read")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread notifications")
	cmd.Flags().BoolVar(&markAllRead, "mark-all-read", false, "mark everything read after listing")
	return cmd
}

func sendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <delivery-uid> <message>",
		Short: "Send a chat message to the delivery conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.Authenticated() {
				return fmt.Errorf("not logged in, run 'swiftparcel login' first")
			}
			if err := client.SendMessage(cmd.Context(), args[0], args[1], types.MessageText); err != nil {
				return err
			}
			color.Green("Sent")
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("swiftparcel %s\n", version.RichVersion())
		},
	}
}

// trackingListener renders live tracking output.
type trackingListener struct {
	client      *sdk.Client
	deliveryUID string
}

func (l *trackingListener) OnConnectionStatus(state types.ConnectionState) {
	switch state.Status {
	case types.StatusConnected:
		color.Green("Connected (%s)", state.Quality)
	case types.StatusConnecting:
		color.Yellow("Connecting...")
	case types.StatusError:
		color.Red("Connection error, retrying (attempt %d)", state.ReconnectAttempts)
	case types.StatusDisconnected:
		color.Red("Disconnected")
	}
}

func (l *trackingListener) OnDeliveryUpdate(deliveryUID string) {
	if deliveryUID != l.deliveryUID {
		return
	}
	state := l.client.State()
	if status, ok := state.DeliveryStatuses[deliveryUID]; ok {
		color.Cyan("Status: %s", status.Status)
	}
	if loc, ok := state.CourierLocations[deliveryUID]; ok {
		fmt.Printf("Courier at %.5f, %.5f\n", loc.Latitude, loc.Longitude)
	}
}

func (l *trackingListener) OnToast(toast notify.Toast) {
	color.Magenta("%s: %s", toast.Notification.Title, toast.Notification.Message)
}

func (l *trackingListener) OnToastExpired(string) {}

func (l *trackingListener) OnForcedLogout(reason string) {
	color.Red("Session ended: %s", reason)
}

func (l *trackingListener) OnError(message string) {
	color.Red("%s", message)
}

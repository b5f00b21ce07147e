package pubsub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTopicName(t *testing.T) {
	c := &Client{projectID: "retail-dev"}

	require.Equal(t, "projects/retail-dev/topics/retailops-orders", c.topicName(" retailops-orders "))
	require.Equal(t, "projects/other/topics/x", c.topicName("projects/other/topics/x"))
	require.Empty(t, c.topicName("  "))
	require.Empty(t, (&Client{}).topicName("orders"))

	var nilClient *Client
	require.Empty(t, nilClient.topicName("x"))
	require.Nil(t, nilClient.Publisher("x"))
}

func TestPingReportsEveryMissingTopic(t *testing.T) {
	checked := []string{}
	c := &Client{
		projectID: "retail-dev",
		topics:    []string{"orders", "payments", "audit"},
		lookup: func(_ context.Context, name string) error {
			checked = append(checked, name)
			switch {
			case strings.HasSuffix(name, "/orders"):
				return nil
			case strings.HasSuffix(name, "/payments"):
				return status.Error(codes.NotFound, "no topic")
			default:
				return errors.New("deadline exceeded")
			}
		},
	}

	err := c.Ping(context.Background())
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	require.Contains(t, errs[0].Error(), `topic "payments" does not exist`)
	require.Contains(t, errs[1].Error(), "deadline exceeded")
	require.Equal(t, []string{
		"projects/retail-dev/topics/orders",
		"projects/retail-dev/topics/payments",
		"projects/retail-dev/topics/audit",
	}, checked)
}

func TestPingUninitialized(t *testing.T) {
	require.ErrorIs(t, (&Client{}).Ping(context.Background()), errNotInitialized)
}

func TestCompactTrims(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, compact(" a ", "", "  ", "b"))
}

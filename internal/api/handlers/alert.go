package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fortiban/fortiban/internal/api/middleware"
)

// TestNotificationID is the event definition id Graylog sends when an
// operator presses "test notification".
const TestNotificationID = "this-is-a-test-notification"

var (
	errMalformedAlert = errors.New("malformed alert notification")
	// Autoban creates /32 objects, so it is stricter than the webhook contract
	// and also rejects IPv6 and non-IP values.
	errNotIPv4        = errors.New("address objects are created for IPv4 only")
)

var wrongInput = gin.H{"status": http.StatusBadRequest, "message": "Wrong input parameters"}

// alertNotification is the subset of a Graylog event notification body we read.
type alertNotification struct {
	EventDefinitionID string          `json:"event_definition_id"`
	Backlog           json.RawMessage `json:"backlog"`
}

type backlogMessage struct {
	Fields struct {
		SSHInvalidUserIP *string `json:"ssh_invalid_user_ip"`
	} `json:"fields"`
}

func (a alertNotification) isTest() bool {
	return a.EventDefinitionID == TestNotificationID
}

// offendingIP returns backlog[0].fields.ssh_invalid_user_ip.
func (a alertNotification) offendingIP() (net.IP, error) {
	if len(a.Backlog) == 0 {
		return nil, errMalformedAlert
	}
	var backlog []backlogMessage
	if err := json.Unmarshal(a.Backlog, &backlog); err != nil {
		return nil, errMalformedAlert
	}
	if len(backlog) == 0 || backlog[0].Fields.SSHInvalidUserIP == nil {
		return nil, errMalformedAlert
	}
	ip := net.ParseIP(*backlog[0].Fields.SSHInvalidUserIP)
	if ip == nil {
		return nil, errMalformedAlert
	}
	return ip, nil
}

// bindAlert decodes the request body; on failure it answers 400 and returns false.
func bindAlert(c *gin.Context) (alertNotification, bool) {
	var alert alertNotification
	if err := c.ShouldBindJSON(&alert); err != nil {
		requestLogger(c).WithError(err).Info("failed to read alert body")
		c.JSON(http.StatusBadRequest, wrongInput)
		return alertNotification{}, false
	}
	return alert, true
}

// extractIP pulls the offending address out of alert; on failure it answers
// 400. With ipv4Only an IPv6 address is also rejected.
func extractIP(c *gin.Context, alert alertNotification, ipv4Only bool) (string, bool) {
	ip, err := alert.offendingIP()
	if err == nil && ipv4Only && ip.To4() == nil {
		err = errNotIPv4
	}
	if err != nil {
		requestLogger(c).WithError(err).Info("failed to read input parameters")
		c.JSON(http.StatusBadRequest, wrongInput)
		return "", false
	}
	return ip.String(), true
}

func requestLogger(c *gin.Context) *logrus.Entry {
	return middleware.GetRequestLogger(c)
}

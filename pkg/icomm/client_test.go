package icomm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "aosmith", 5*time.Second, zap.NewNop()), server
}

func TestPasscodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	passcode, err := Passcode("user@example.com", "p&ss word")
	assert.NoError(err)

	decoded, err := base64.StdEncoding.DecodeString(passcode)
	assert.NoError(err)

	unescaped, err := url.QueryUnescape(string(decoded))
	assert.NoError(err)

	var creds map[string]string
	assert.NoError(json.Unmarshal([]byte(unescaped), &creds))
	assert.Equal("user@example.com", creds["email"])
	assert.Equal("p&ss word", creds["password"])
}

func TestLogin(t *testing.T) {
	assert := assert.New(t)

	var gotRequest graphQLRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("aosmith", r.Header.Get("brand"))
		assert.Equal(clientVersion, r.Header.Get("version"))
		assert.Equal(userAgent, r.Header.Get("User-Agent"))
		assert.Empty(r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(json.Unmarshal(body, &gotRequest))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"login":{"user":{"tokens":{"accessToken":"at","idToken":"it","refreshToken":"rt"}}}}}`)
	})

	tokens, err := client.Login(context.Background(), "user@example.com", "secret")
	assert.NoError(err)
	assert.Equal("at", tokens.AccessToken)
	assert.Equal("rt", tokens.RefreshToken)
	assert.NotEmpty(gotRequest.Variables["passcode"])
}

func TestLoginWithoutToken(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"login":{"user":{"tokens":{}}}}}`)
	})

	_, err := client.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(err, ErrLoginFailed)
}

func TestGetDevices(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"devices":[
			{"junctionId":"A","brand":"aosmith","name":"Main Heater","deviceType":"NEXT_GEN_HEAT_PUMP",
			 "dsn":"AC0001","model":"HPTS-50","serial":"123","install":{"location":"Garage"},
			 "data":{"__typename":"NextGenHeatPump","temperatureSetpoint":125,"temperatureSetpointMaximum":140,
			         "isOnline":true,"firmwareVersion":"2.14","hotWaterStatus":"MEDIUM","mode":"HEAT_PUMP",
			         "modes":[{"mode":"HEAT_PUMP"},{"mode":"VACATION","controls":"SELECT_DAYS"}]}},
			{"junctionId":"B","brand":"aosmith","name":"","deviceType":"RE3_CONNECTED",
			 "dsn":"AC0002","model":"EJC-30","serial":"456","install":{"location":"Attic"},
			 "data":{"__typename":"RE3Connected","temperatureSetpoint":120,"temperatureSetpointMaximum":150,
			         "isOnline":false,"firmwareVersion":"1.1","hotWaterStatus":35,"mode":"ELECTRIC","modePending":true,
			         "modes":[{"mode":"ELECTRIC"}]}}
		]}}`)
	})

	devices, err := client.GetDevices(context.Background(), "token-123", true, nil)
	assert.NoError(err)
	assert.Len(devices, 2)

	assert.Equal("A", devices[0].JunctionID)
	assert.Equal("Garage", devices[0].Install.Location)
	assert.Equal(HotWaterMedium, devices[0].Data.HotWaterStatus.Label)
	assert.Nil(devices[0].Data.HotWaterStatus.Numeric)

	assert.Equal("B", devices[1].JunctionID)
	assert.True(devices[1].Data.ModePending)
	if assert.NotNil(devices[1].Data.HotWaterStatus.Numeric) {
		assert.Equal(35, *devices[1].Data.HotWaterStatus.Numeric)
	}
}

func TestUnauthorizedInBody(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":null,"errors":[{"message":"token expired","extensions":{"code":"UNAUTHORIZED_ERROR"}}]}`)
	})

	_, err := client.GetDevices(context.Background(), "stale", false, nil)
	assert.ErrorIs(err, ErrUnauthorized)
}

func TestUnauthorizedStatus(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetDevices(context.Background(), "stale", false, nil)
	assert.ErrorIs(err, ErrUnauthorized)
}

func TestOtherGraphQLError(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":null,"errors":[{"message":"boom","code":"INTERNAL_ERROR"}]}`)
	})

	_, err := client.GetDevices(context.Background(), "token", false, nil)
	assert.Error(err)
	assert.False(IsUnauthorized(err))
}

func TestNonOKStatus(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetDevices(context.Background(), "token", false, nil)
	assert.Error(err)
	assert.False(IsUnauthorized(err))
	assert.False(IsTimeout(err))
}

func TestUpdateModeConfirmation(t *testing.T) {
	assert := assert.New(t)

	var gotRequest graphQLRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(json.Unmarshal(body, &gotRequest))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"updateMode":true}}`)
	})

	days := 30
	confirmed, err := client.UpdateMode(context.Background(), "token", "A", ModeInput{Mode: "VACATION", Days: &days})
	assert.NoError(err)
	assert.True(confirmed)

	mode, ok := gotRequest.Variables["mode"].(map[string]any)
	assert.True(ok)
	assert.Equal("VACATION", mode["mode"])
	assert.Equal(float64(30), mode["days"])
}

func TestUpdateSetpointUnconfirmed(t *testing.T) {
	assert := assert.New(t)

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{}}`)
	})

	confirmed, err := client.UpdateSetpoint(context.Background(), "token", "A", 130)
	assert.NoError(err)
	assert.False(confirmed)
}

func TestTimeoutClassification(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "aosmith", 50*time.Millisecond, zap.NewNop())
	_, err := client.GetDevices(context.Background(), "token", false, nil)
	assert.ErrorIs(err, ErrTimeout)
}

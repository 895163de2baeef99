package main_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"corplandlords/wireboard/internal/auth"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAppBinary      = "./wireboard_test_app"
	testAppPort        = "8089"
	testServiceApiPort = "8091"
	testAppURL         = "http://localhost:" + testAppPort
	testServiceApiURL  = "http://localhost:" + testServiceApiPort + "/api"
	testJwtSecret      = "integration-test-secret"
	startupTimeout     = 15 * time.Second
	pingEndpoint       = testAppURL + "/v1/ping"
)

var createdWires []primitive.ObjectID

// TestMain builds the binary and runs it in "all" mode against the test
// collections. It needs MONGO_URI and a reachable Redis.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set, skipping integration tests")
		return
	}

	defer func() { _ = os.Remove(testAppBinary) }()

	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(out))
		os.Exit(1)
	}

	appCmd := exec.Command(testAppBinary, "-m", "all")
	appCmd.Env = append(os.Environ(),
		"APP_ENV=test",
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPort,
		"JWT_SECRET="+testJwtSecret,
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"RATE_LIMIT_SOFT_BUCKET_SIZE=50",
		"RATE_LIMIT_SOFT_REFILL_RATE=50",
		"RATE_LIMIT_HARD_BUCKET_SIZE=100",
		"RATE_LIMIT_HARD_REFILL_RATE=100",
		"SMTP_FROM_ADDRESS=test@example.com",
	)
	appCmd.Stderr = os.Stderr
	appCmd.Stdout = os.Stdout
	if err := appCmd.Start(); err != nil {
		log.Printf("Failed to start application: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := appCmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = appCmd.Process.Kill()
		}
		_, _ = appCmd.Process.Wait()
		cleanupWires()
	}()

	deadline := time.Now().Add(startupTimeout)
	ready := false
	for time.Now().Before(deadline) {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				ready = true
				break
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}

	code := m.Run()
	if code != 0 {
		log.Printf("integration tests failed with exit code %d", code)
	}
}

func cleanupWires() {
	if len(createdWires) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Printf("cleanup: %v", err)
		return
	}
	defer client.Disconnect(ctx)
	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "wireboard"
	}
	_, err = client.Database(dbName).Collection("test_userRequests").DeleteMany(ctx, bson.M{"_id": bson.M{"$in": createdWires}})
	if err != nil {
		log.Printf("cleanup: %v", err)
	}
}

func doJSON(t *testing.T, method, url, body, token string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_WizardToBoard(t *testing.T) {
	email := fmt.Sprintf("it_%d@example.com", time.Now().UnixNano())

	status, wire := doJSON(t, http.MethodPost, testAppURL+"/v1/requests",
		fmt.Sprintf(`{"usingAgent":"No","contact":{"fullName":"Ada Obi","email":%q,"phone":"08012345678"}}`, email), "")
	require.Equal(t, http.StatusCreated, status, wire)
	id := wire["id"].(string)
	oid, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)
	createdWires = append(createdWires, oid)
	base := testAppURL + "/v1/requests/" + id

	status, wire = doJSON(t, http.MethodPut, base+"/details", `{
		"requestType": "Rent",
		"locations": ["Lekki"],
		"minBudget": 500000,
		"maxBudget": 1500000,
		"paymentOptions": "Yearly",
		"propertyType": "Bare Land",
		"useCase": "Residential",
		"landSize": "Acres",
		"units": 2,
		"rentDuration": "1 year"
	}`, "")
	require.Equal(t, http.StatusOK, status, wire)
	assert.Equal(t, "Acres", wire["landSize"])
	assert.NotContains(t, wire, "roomsNo")

	status, wire = doJSON(t, http.MethodPost, base+"/complete", "", "")
	require.Equal(t, http.StatusOK, status, wire)

	status, receipt := doJSON(t, http.MethodPost, base+"/submit", "", "")
	require.Equal(t, http.StatusOK, status, receipt)
	requestID := receipt["requestID"].(string)
	assert.Len(t, requestID, 9)

	status, mail := doJSON(t, http.MethodPost, testServiceApiURL, fmt.Sprintf(`{"method":"getTestEmail","arguments":[%q]}`, email), "")
	require.Equal(t, http.StatusOK, status, mail)
	data := mail["data"].(map[string]interface{})
	assert.Contains(t, data["subject"], requestID)

	status, _ = doJSON(t, http.MethodPost, testServiceApiURL, fmt.Sprintf(`{"method":"publishWire","arguments":[%q]}`, id), "")
	require.Equal(t, http.StatusOK, status)

	status, list := doJSON(t, http.MethodGet, testAppURL+"/v1/wires?type=rent&search="+strings.ToLower(requestID), "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), list["count"])

	token, err := auth.GenerateJWT("it-user", false, testJwtSecret, time.Hour)
	require.NoError(t, err)
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/wires/"+id+"/like", "", token)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/wires/"+id+"/like", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, wire = doJSON(t, http.MethodGet, testAppURL+"/v1/wires/"+id, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"it-user"}, wire["likes"])
}

func TestIntegration_StreamSendsSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, testAppURL+"/v1/wires/stream?type=all", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err, "stream ended before the first snapshot")
		if strings.HasPrefix(line, "event:") {
			assert.Equal(t, "event:wires", strings.TrimSpace(line))
			return
		}
	}
}

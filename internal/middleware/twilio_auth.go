package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/gofiber/fiber/v2"
)

// ValidateTwilioSignature rejects webhook requests that do not carry a valid
// Twilio signature. Validation is skipped when the Twilio driver is not the
// active gateway or when TWILIO_VALIDATE_WEBHOOK=false (local testing with
// curl or the test webhook).
func ValidateTwilioSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if os.Getenv("TWILIO_VALIDATE_WEBHOOK") == "false" {
			return c.Next()
		}
		if driver := os.Getenv("GATEWAY_DRIVER"); driver != "" && driver != "twilio" {
			return c.Next()
		}

		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(401).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		authToken := os.Getenv("TWILIO_AUTH_TOKEN")
		if authToken == "" {
			log.Println("ERROR: TWILIO_AUTH_TOKEN not set, cannot validate webhook")
			return c.Status(500).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		expected := twilioSignature(authToken, webhookURL(c), formParams)
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return c.Status(401).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// webhookURL rebuilds the public URL Twilio signed. WEBHOOK_BASE_URL takes
// precedence because the proxy in front of us rewrites Host.
func webhookURL(c *fiber.Ctx) string {
	if base := os.Getenv("WEBHOOK_BASE_URL"); base != "" {
		return base + c.Path()
	}
	protocol := "https"
	if c.Protocol() == "http" {
		protocol = "http"
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.Hostname(), c.Path())
}

// twilioSignature computes the signature Twilio would have produced for the
// given URL and form parameters.
func twilioSignature(authToken, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := url
	for _, k := range keys {
		data += k + params[k]
	}

	h := hmac.New(sha256.New, []byte(authToken))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// MeowGateway is a direct WhatsApp Web connection via whatsmeow. Pairing
// happens once through a QR code printed to the terminal; the session is
// kept in a local sqlite database.
type MeowGateway struct {
	client *whatsmeow.Client
}

// NewMeowGateway creates the gateway and its device store.
func NewMeowGateway() (*MeowGateway, error) {
	dbPath := os.Getenv("WHATSMEOW_DB")
	if dbPath == "" {
		dbPath = "file:vendazap.db?_foreign_keys=on"
	}

	dbLog := waLog.Stdout("Database", "ERROR", true)
	container, err := sqlstore.New(context.Background(), "sqlite3", dbPath, dbLog)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "ERROR", true))
	return &MeowGateway{client: client}, nil
}

// Connect logs in, printing a QR code when the device is not yet paired.
func (m *MeowGateway) Connect() error {
	if m.client.Store.ID == nil {
		qrChan, _ := m.client.GetQRChannel(context.Background())
		if err := m.client.Connect(); err != nil {
			return err
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				log.Println("📱 Scan the QR code to pair WhatsApp:")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			} else {
				log.Printf("QR channel: %s", evt.Event)
			}
		}
		return nil
	}
	return m.client.Connect()
}

// SendText sends a plain text message to a phone number.
func (m *MeowGateway) SendText(to, text string) (SendResult, error) {
	number := nonDigits.ReplaceAllString(to, "")
	if number == "" {
		return SendResult{InvalidNumber: true}, nil
	}
	jid := types.NewJID(number, types.DefaultUserServer)

	_, err := m.client.SendMessage(context.Background(), jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		log.Printf("❌ whatsmeow send to %s failed: %v", to, err)
		return SendResult{}, err
	}
	return SendResult{Sent: true}, nil
}

// Close disconnects from WhatsApp Web.
func (m *MeowGateway) Close() {
	m.client.Disconnect()
}

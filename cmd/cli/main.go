// Command cli is a small operator tool for envelope administration: listing
// and inspecting envelopes, sending and voiding them, and fetching archived
// artifacts through presigned URLs.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/signvault/internal/netx"
	"github.com/dmitrijs2005/signvault/internal/server"
	"github.com/dmitrijs2005/signvault/internal/server/config"
	"github.com/dmitrijs2005/signvault/internal/server/services"
)

const usage = `usage:
  cli create <creator-id> <subject> <document-file> <signer-email>...
  cli send <envelope-id>
  cli void <envelope-id>
  cli show <envelope-id>
  cli list <creator-id>
  cli fetch <presigned-url> <out-file>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	ctx := context.Background()

	if command == "fetch" {
		if len(args) != 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		b, err := netx.DownloadFromPresignedURL(args[0])
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := os.WriteFile(args[1], b, 0o600); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(b), args[1])
		return
	}

	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := run(ctx, app, command, args); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, app *server.App, command string, args []string) error {
	es := app.Envelopes()

	switch command {
	case "create":
		if len(args) < 4 {
			return fmt.Errorf("create needs a creator, subject, document and at least one signer")
		}
		f, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer f.Close()

		req := services.CreateEnvelopeRequest{
			CreatorID: args[0],
			Subject:   args[1],
			Documents: []services.DocumentUpload{{Filename: args[2], Content: f}},
		}
		for i, email := range args[3:] {
			req.Signers = append(req.Signers, services.SignerInput{
				Name:  strings.Split(email, "@")[0],
				Email: email,
				Order: i + 1,
			})
		}
		env, err := es.CreateEnvelope(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("created envelope %s\n", env.ID)
		return nil

	case "send":
		if len(args) != 1 {
			return fmt.Errorf("send needs an envelope id")
		}
		if err := es.SendEnvelope(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("sent")
		return nil

	case "void":
		if len(args) != 1 {
			return fmt.Errorf("void needs an envelope id")
		}
		if err := es.VoidEnvelope(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("voided")
		return nil

	case "show":
		if len(args) != 1 {
			return fmt.Errorf("show needs an envelope id")
		}
		details, err := es.GetEnvelope(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("envelope %s [%s] %q\n", details.Envelope.ID, details.Envelope.Status, details.Envelope.Subject)
		for _, d := range details.Documents {
			fmt.Printf("  document %s %s -> %s\n", d.ID, d.Filename, d.CurrentPath())
		}
		for _, sg := range details.Signers {
			fmt.Printf("  signer %s <%s> signed=%v\n", sg.Name, sg.Email, sg.HasSigned)
		}
		for _, e := range details.Audit {
			fmt.Printf("  audit %s %s %s\n", e.OccurredAt.Format("2006-01-02 15:04:05"), e.EventType, string(e.Payload))
		}
		return nil

	case "list":
		if len(args) != 1 {
			return fmt.Errorf("list needs a creator id")
		}
		envs, err := es.ListEnvelopes(ctx, args[0])
		if err != nil {
			return err
		}
		for _, env := range envs {
			fmt.Printf("%s [%s] %q\n", env.ID, env.Status, env.Subject)
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

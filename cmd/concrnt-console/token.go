package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/jwt"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Inspect and mint tokens for testing sign in",
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "Print the header and claims of a token",
				ArgsUsage: "<token>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "verify", Usage: "check the signature and expiry offline"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					token := cmd.Args().First()
					if token == "" {
						return errors.New("token is required")
					}
					return inspectToken(token, cmd.Bool("verify"))
				},
			},
			{
				Name:  "mint",
				Usage: "Mint a client signed token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true, Usage: "hex encoded private key"},
					&cli.StringFlag{Name: "aud", Required: true, Usage: "fqdn of the domain the token is for"},
					&cli.StringFlag{Name: "sub", Value: "concrnt", Usage: "subject claim"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "token lifetime"},
					&cli.StringFlag{Name: "portal", Usage: "base url of a portal; prints a sign in link"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					token, err := mintToken(cmd.String("key"), cmd.String("aud"), cmd.String("sub"), cmd.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					if portal := cmd.String("portal"); portal != "" {
						fmt.Println(loginURL(portal, token))
					}
					return nil
				},
			},
		},
	}
}

func inspectToken(token string, verify bool) error {
	header, claims, err := jwt.Decode(token)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(struct {
		Header jwt.Header `json:"header"`
		Claims jwt.Claims `json:"claims"`
	}{header, claims}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if verify {
		_, _, err := jwt.Verify(token)
		if err != nil {
			return errors.Wrap(err, "verification failed")
		}
		fmt.Println("signature: ok")
	}
	return nil
}

func mintToken(key, aud, sub string, ttl time.Duration) (string, error) {
	issuer, err := concrnt.PrivKeyToAddr(key, "con")
	if err != nil {
		return "", errors.Wrap(err, "invalid private key")
	}

	claims := jwt.Claims{
		Issuer:         issuer,
		Subject:        sub,
		Audience:       aud,
		IssuedAt:       jwt.NumericString(strconv.FormatInt(time.Now().Unix(), 10)),
		ExpirationTime: jwt.ExpiresIn(ttl),
		JWTID:          uuid.NewString(),
	}

	return jwt.Create(claims, key)
}

// loginURL links to the claim flow of the portal with token.
func loginURL(portal, token string) string {
	return strings.TrimRight(portal, "/") + "/login?claim=1&token=" + url.QueryEscape(token)
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dingtalk-contrib/dap/dingtalk"
)

// List of required configuration environment variables
const (
	appID       = "DINGTALK_APP_ID"
	appSecret   = "DINGTALK_APP_SECRET"
	callbackURL = "DINGTALK_CALLBACK_URL"
)

// corpID is optional; when set the silent-login flow is offered as well.
const corpID = "DINGTALK_CORP_ID"

func envConfig() (map[string]string, error) {
	env := map[string]string{
		appID:       os.Getenv(appID),
		appSecret:   os.Getenv(appSecret),
		callbackURL: os.Getenv(callbackURL),
	}
	for k, v := range env {
		if v == "" {
			return nil, fmt.Errorf("%s is empty", k)
		}
	}
	env[corpID] = os.Getenv(corpID)
	return env, nil
}

func main() {
	env, err := envConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	cfg, err := dingtalk.NewConfig(env[appID], dingtalk.AppSecret(env[appSecret]))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}

	client, err := dingtalk.NewClient(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}

	authURL, err := client.AuthURL(env[callbackURL])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	fmt.Println("Open the following URL, consent, and paste the code from the redirect back here:")
	fmt.Println(authURL)

	fmt.Print("code> ")
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	code = strings.TrimSpace(code)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := client.GetContactUserInfo(ctx, code)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	printJSON("consent flow identity:", info)

	if env[corpID] == "" {
		return
	}
	corpClient, err := client.SetCorpID(env[corpID])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	org, err := corpClient.GetOrganization(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	printJSON("organization:", org)
}

func printJSON(msg string, v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	fmt.Println(msg)
	fmt.Println(string(b))
}

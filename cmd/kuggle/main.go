// kuggle 是 Kuggle API 的命令行客户端。
//
// 用法：
//
//	kuggle [flags] METHOD ENDPOINT [key=value | key:=json ...]
//	kuggle [flags] logout
//
// key=value 给出字符串参数； key:=json 给出任意 JSON 值，如 tags:='["a","b"]' 、 user:='{"id":1}' 。
// 回执以 JSON 格式输出到 stdout 。调用失败时，若有回执，同样输出回执，并以非 0 状态码退出。
//
// 登录得到的令牌默认保存在加密的凭据文件中（见 config.Default ），后续的运行会继续使用它，
// logout 将其删除。使用 --store memory 时令牌不会保留到下一次运行。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cmstar/go-errx"
	"github.com/cmstar/go-kuggleapi"
	"github.com/cmstar/go-kuggleapi/config"
	"github.com/cmstar/go-kuggleapi/credstore"
	"github.com/cmstar/go-kuggleapi/logfunc"
	"github.com/cmstar/go-kuggleapi/signauth"
	"github.com/cmstar/go-logx"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	baseURL    string
	token      string
	headers    []string
	store      string
	verbose    bool
	help       bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var op options
	flagSet := pflag.NewFlagSet("kuggle", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&op.configPath, "config", "", "config file (.yaml, .toml or .jsonc), defaults to $"+config.EnvConfigPath)
	flagSet.StringVar(&op.baseURL, "base-url", "", "override base_url of the config")
	flagSet.StringVar(&op.token, "token", "", "use this token instead of the stored one")
	flagSet.StringArrayVarP(&op.headers, "header", "H", nil, "extra header, 'Name: value', repeatable")
	flagSet.StringVar(&op.store, "store", "", "credential store: memory or file, overrides the config")
	flagSet.BoolVarP(&op.verbose, "verbose", "v", false, "log each call to stderr")
	flagSet.BoolVarP(&op.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}

	if op.help {
		printHelp(stderr, flagSet)
		return nil
	}

	cfg, err := loadConfig(op)
	if err != nil {
		return err
	}

	positional := flagSet.Args()
	if len(positional) == 1 && positional[0] == "logout" {
		if cfg.Credentials.Store == config.StoreMemory {
			return errors.New("logout: the memory store keeps nothing between runs, there is no stored token to delete")
		}

		client, err := newClient(cfg, op)
		if err != nil {
			return err
		}
		if !client.Logout() {
			return errors.New("failed to delete the stored token")
		}
		return nil
	}

	if len(positional) < 2 {
		printHelp(stderr, flagSet)
		return errors.New("METHOD and ENDPOINT are required")
	}

	method := strings.ToUpper(positional[0])
	endpoint := positional[1]
	params, err := parseParams(positional[2:])
	if err != nil {
		return err
	}

	header, err := parseHeaders(op.headers)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, op)
	if err != nil {
		return err
	}

	body, err := client.Do(ctx, kuggleapi.Call{
		Method:   method,
		Endpoint: endpoint,
		Params:   params,
		Token:    op.token,
		Header:   header,
	})

	if !body.IsNull() {
		if werr := writeBody(stdout, body); werr != nil {
			return werr
		}
	}

	// 内存存储在每次运行时都是空的，其中有令牌说明是这次调用得到的，进程退出后就会丢失。
	if cfg.Credentials.Store == config.StoreMemory {
		if _, ok := client.Token(); ok {
			fmt.Fprintln(stderr, "warning: the issued token is kept in memory only and is lost on exit, use '--store file' to keep it")
		}
	}

	if err != nil {
		return errx.Wrap(method+" "+endpoint, err)
	}
	return nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: kuggle [flags] METHOD ENDPOINT [key=value | key:=json ...]")
	fmt.Fprintln(w, "       kuggle [flags] logout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func loadConfig(op options) (config.Config, error) {
	cfg, err := config.Load(op.configPath)
	if err != nil {
		return config.Config{}, errx.Wrap("load config", err)
	}

	if op.baseURL != "" {
		cfg.BaseURL = op.baseURL
	}
	if op.store != "" {
		cfg.Credentials.Store = op.store
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newClient(cfg config.Config, op options) (*kuggleapi.Client, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	access, err := credstore.ParseAccessibility(cfg.Credentials.Accessibility)
	if err != nil {
		return nil, err
	}

	clientOp := kuggleapi.Options{
		BaseURL:            cfg.BaseURL,
		Doer:               &http.Client{Timeout: timeout},
		Store:              store,
		TokenAccessibility: access,
		Header:             cfg.Headers,
	}

	if cfg.Locale != "" {
		clientOp.Locale = kuggleapi.FixedLocale(cfg.Locale)
	}

	if op.verbose {
		clientOp.Logger = logx.NewStdLogger(nil)
		clientOp.LogPipeline = logfunc.Default()
	}

	if cfg.Signing.Key != "" {
		clientOp.RequestSetup = signauth.NewSigner(cfg.Signing.Key, cfg.Signing.Secret).Setup
	}

	return kuggleapi.NewClient(clientOp), nil
}

func newStore(cfg config.Config) (credstore.Store, error) {
	if cfg.Credentials.Store == config.StoreMemory {
		return credstore.NewMemoryStore(), nil
	}

	path, err := cfg.CredentialsPath()
	if err != nil {
		return nil, err
	}

	passphrase, ok := cfg.Passphrase()
	if !ok {
		passphrase, err = promptPassphrase()
		if err != nil {
			return nil, err
		}
	}

	return credstore.NewFileStore(credstore.FileStoreOption{
		Path:       path,
		Passphrase: passphrase,
	})
}

// promptPassphrase 在终端上读取口令，输入不回显。
func promptPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the passphrase prompt (set the passphrase environment variable)")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errx.Wrap("read passphrase", err)
	}
	if len(b) == 0 {
		return "", errors.New("empty passphrase")
	}
	return string(b), nil
}

// parseParams 解析 key=value 和 key:=json 形式的参数。同一个 key 不能出现多次。
func parseParams(items []string) (kuggleapi.Params, error) {
	params := make(kuggleapi.Params, len(items))
	for _, item := range items {
		var key string
		var value kuggleapi.Value

		if k, raw, ok := strings.Cut(item, ":="); ok && !strings.Contains(k, "=") {
			key = k
			if err := value.UnmarshalJSON([]byte(raw)); err != nil {
				return nil, fmt.Errorf("param %q: bad JSON: %w", k, err)
			}
		} else if k, v, ok := strings.Cut(item, "="); ok {
			key = k
			value = kuggleapi.NewString(v)
		} else {
			return nil, fmt.Errorf("param %q: expect key=value or key:=json", item)
		}

		if key == "" {
			return nil, fmt.Errorf("param %q: empty key", item)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("param %q given more than once", key)
		}
		params[key] = value
	}
	return params, nil
}

// parseHeaders 解析 'Name: value' 形式的 HTTP 头。
func parseHeaders(items []string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	header := make(map[string]string, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("header %q: expect 'Name: value'", item)
		}
		header[name] = strings.TrimSpace(value)
	}
	return header, nil
}

func writeBody(w io.Writer, body kuggleapi.Value) error {
	b, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

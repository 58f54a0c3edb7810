package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/dfslabs/dfs/cmd/util"
	"github.com/dfslabs/dfs/lib/namespace"
	"github.com/dfslabs/dfs/rpc/common"
	"github.com/dfslabs/dfs/rpc/serializer"
	"github.com/dfslabs/dfs/rpc/server"
	"github.com/dfslabs/dfs/rpc/transport"
	"github.com/dfslabs/dfs/rpc/transport/http"
	"github.com/dfslabs/dfs/rpc/transport/tcp"
	"github.com/dfslabs/dfs/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a dFS metadata server",
		Long:    `Start a dFS metadata server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DFS_<flag> (e.g. DFS_ENDPOINT=0.0.0.0:8020)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8020", cmdUtil.WrapString("The address on which the metadata API will listen (e.g. 0.0.0.0:8020, /tmp/dfs.sock, ...)"))

	key = "role"
	ServeCmd.PersistentFlags().String(key, "active", cmdUtil.WrapString("The HA role of this instance (active, standby). A standby instance refuses every namespace operation and relies on clients to fail over"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Per-connection read/write timeout in seconds"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Maximum concurrent request workers per connection"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Role = viper.GetString("role")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// validate the role early, before the store is built
	if _, err := namespace.ParseRole(serveCmdConfig.Role); err != nil {
		return err
	}

	return nil
}

// run starts the metadata server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	role, err := namespace.ParseRole(serveCmdConfig.Role)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		namespace.NewStore(role),
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

package socket_io

import (
	realtime_models "RinkLink/models/realtime"
	redis_service "RinkLink/services/redis"
	socketio_types "RinkLink/services/socket_io/types"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

type MySocketServer socketio_types.SocketServer

// scheduleRoom is the socket.io room carrying one owner's schedule events.
func scheduleRoom(ownerID string) socket.Room {
	return socket.Room("schedule:" + ownerID)
}

func (sio *MySocketServer) Start(router *gin.Engine, db *gorm.DB, redisClient *redis_service.RedisClient) {
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	// NOTE: higher ping interval and timeout to 1) reduce network load and 2) support slower networks
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	// KEY: initialize the map, otherwise it panics
	sio.UserConnections = make(map[string]*socket.Socket)

	sio.Sio_server = socket.NewServer(nil, nil)
	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		// Check if the client is authenticated
		userID, err := VerifyUserConnection(client, db)
		if err != nil {
			return
		}

		// Add connection to map
		(*socketio_types.SocketServer)(sio).AddConnection(userID, client)

		// Mirror the connection in Redis so other instances can see who is
		// online.
		if err := redisClient.MarkUserPresent(userID, string(client.Id())); err != nil {
			fmt.Println("Could not record presence for", userID, ":", err)
		}

		fmt.Println("An individual just connected!: ", userID)

		// Join the room carrying this user's schedule change events. Clients
		// only ever get their own room, so events for unrelated owners never
		// reach them.
		client.On("join_schedule", func(args ...interface{}) {
			client.Join(scheduleRoom(userID))
			client.Emit("joined_schedule", gin.H{"owner_id": userID})
		})

		client.On("leave_schedule", func(args ...interface{}) {
			client.Leave(scheduleRoom(userID))
		})

		// NOTE: will remove sio connection from map
		client.On("disconnecting", func(args ...interface{}) {
			(*socketio_types.SocketServer)(sio).RemoveConnection(userID)
			if err := redisClient.ClearUserPresence(userID); err != nil {
				fmt.Println("Could not clear presence for", userID, ":", err)
			}
		})
	})

	// Relay Redis pub/sub change events into the socket.io rooms.
	go sio.relayScheduleChanges(redisClient)

	router.POST("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))
	router.GET("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))

	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				sio.Sio_server.Close(nil)
				os.Exit(0)
			}
		}
	}()

	fmt.Println("Socket server started")
}

// relayScheduleChanges pattern-subscribes to every owner's schedule channel
// and forwards each event into the matching room as a "schedule_change"
// emission. The event payload goes out unchanged, same wire shape the REST
// API uses.
func (sio *MySocketServer) relayScheduleChanges(redisClient *redis_service.RedisClient) {
	pubsub := redisClient.Client.PSubscribe(redisClient.Ctx, "schedule:*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var event realtime_models.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			fmt.Println("Dropping malformed schedule change:", err)
			continue
		}

		rec := event.Record()
		if rec == nil {
			continue
		}

		sio.Sio_server.To(scheduleRoom(rec.OwnerID)).Emit("schedule_change", event)
	}
}

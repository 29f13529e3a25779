// Package devdb starts a disposable PostgreSQL server in Docker for local
// development and integration tests.
package devdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

const postgresPort = nat.Port("5432/tcp")

// Instance is a running PostgreSQL container. Close removes it.
type Instance struct {
	cli    *client.Client
	id     string
	dsn    string
	logger *slog.Logger
}

// Start pulls the image, runs the container and blocks until PostgreSQL
// accepts TCP connections or cfg.StartupTimeout passes.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Instance, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("devdb: creating docker client: %w", err)
	}

	if err := pullImage(ctx, cli, cfg.Image, logger); err != nil {
		cli.Close()
		return nil, err
	}

	inst := &Instance{cli: cli, logger: logger}

	inst.id, err = createContainer(ctx, cli, cfg)
	if err != nil {
		cli.Close()
		return nil, err
	}

	hostPort, err := inst.hostPort(ctx)
	if err != nil {
		inst.Close()
		return nil, err
	}
	inst.dsn = cfg.DSN(hostPort)

	waitCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancel()
	if err := inst.waitReady(waitCtx, cfg); err != nil {
		inst.Close()
		return nil, err
	}

	logger.Info("dev database ready",
		slog.String("container", inst.id[:12]),
		slog.String("port", hostPort),
	)
	return inst, nil
}

// DSN is the connection string for the running server.
func (i *Instance) DSN() string {
	return i.dsn
}

// Close force-removes the container and closes the Docker client.
func (i *Instance) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rmErr := i.cli.ContainerRemove(ctx, i.id, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if rmErr != nil {
		i.logger.Error("failed to remove dev database container",
			slog.String("id", i.id),
			slog.String("error", rmErr.Error()),
		)
	}
	return errors.Join(rmErr, i.cli.Close())
}

func pullImage(ctx context.Context, cli *client.Client, ref string, logger *slog.Logger) error {
	pullCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", ref))
	reader, err := cli.ImagePull(pullCtx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("devdb: pulling image %s: %w", ref, err)
	}
	defer reader.Close()

	// the pull only finishes once the progress stream is drained
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("devdb: pulling image %s: %w", ref, err)
	}
	return nil
}

func createContainer(ctx context.Context, cli *client.Client, cfg Config) (string, error) {
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			postgresPort: []nat.PortBinding{{HostIP: cfg.HostIP, HostPort: ""}},
		},
		Resources: container.Resources{
			Memory: cfg.MemoryLimit,
		},
		AutoRemove: false,
	}

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:        cfg.Image,
		Env:          cfg.env(),
		ExposedPorts: nat.PortSet{postgresPort: struct{}{}},
		Labels:       map[string]string{"blogpost-api.devdb": "true"},
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("devdb: creating container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("devdb: starting container: %w", err)
	}

	return resp.ID, nil
}

// hostPort returns the host port Docker assigned to 5432/tcp.
func (i *Instance) hostPort(ctx context.Context) (string, error) {
	info, err := i.cli.ContainerInspect(ctx, i.id)
	if err != nil {
		return "", fmt.Errorf("devdb: inspecting container: %w", err)
	}
	if info.NetworkSettings == nil {
		return "", errors.New("devdb: container has no network settings")
	}

	bindings := info.NetworkSettings.Ports[postgresPort]
	if len(bindings) == 0 || bindings[0].HostPort == "" {
		return "", errors.New("devdb: postgres port is not published")
	}
	return bindings[0].HostPort, nil
}

// waitReady polls pg_isready inside the container. Checking over TCP skips
// the socket-only server the image runs while it initialises the cluster.
func (i *Instance) waitReady(ctx context.Context, cfg Config) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		code, out, err := i.exec(ctx, []string{
			"pg_isready", "-h", "127.0.0.1", "-U", cfg.User, "-d", cfg.Database,
		})
		if err == nil && code == 0 {
			return nil
		}
		i.logger.Debug("waiting for dev database",
			slog.Int("exit_code", code),
			slog.String("output", out),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("devdb: database not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// exec runs cmd in the container and returns its exit code and combined
// output.
func (i *Instance) exec(ctx context.Context, cmd []string) (int, string, error) {
	execResp, err := i.cli.ContainerExecCreate(ctx, i.id, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		return -1, "", fmt.Errorf("devdb: creating exec: %w", err)
	}

	attachResp, err := i.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return -1, "", fmt.Errorf("devdb: attaching to exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return -1, "", fmt.Errorf("devdb: reading exec output: %w", err)
	}

	inspect, err := i.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return -1, "", fmt.Errorf("devdb: inspecting exec: %w", err)
	}

	return inspect.ExitCode, stdout.String() + stderr.String(), nil
}

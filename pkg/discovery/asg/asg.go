package asg

import (
    "context"
    "fmt"
    "sort"

    "github.com/aws/aws-sdk-go-v2/aws"
    awsconfig "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/service/autoscaling"
    "github.com/aws/aws-sdk-go-v2/service/ec2"
    ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

    "github.com/fleetware/couchrally/pkg/discovery"
)

// Options configures Auto Scaling group backed fleet lookup.
type Options struct {
    // GroupName is the Auto Scaling group whose instances form the fleet.
    GroupName string
    // Region overrides the SDK's default region resolution when non-empty.
    Region string
}

// asgAPI and ec2API are the SDK surfaces we consume; narrowed for tests.
type asgAPI interface {
    DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, opts ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

type ec2API interface {
    DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

type impl struct {
    opts Options
    asg  asgAPI
    ec2  ec2API
}

// New builds a Directory over an AWS Auto Scaling group. Credentials and
// region come from the standard SDK chain (env, shared config, IMDS role).
func New(ctx context.Context, opts Options) (discovery.Directory, error) {
    if opts.GroupName == "" {
        return nil, fmt.Errorf("asg: empty GroupName")
    }
    var loadOpts []func(*awsconfig.LoadOptions) error
    if opts.Region != "" {
        loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
    }
    cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
    if err != nil {
        return nil, fmt.Errorf("asg: load aws config: %w", err)
    }
    return &impl{
        opts: opts,
        asg:  autoscaling.NewFromConfig(cfg),
        ec2:  ec2.NewFromConfig(cfg),
    }, nil
}

// Instances resolves the group's member instance ids and hydrates launch
// times and hostnames from EC2. Only running instances are reported; the
// view is eventually consistent by nature and re-read on every call.
func (d *impl) Instances(ctx context.Context) ([]discovery.Instance, error) {
    groups, err := d.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
        AutoScalingGroupNames: []string{d.opts.GroupName},
    })
    if err != nil {
        return nil, fmt.Errorf("asg: describe group %q: %w", d.opts.GroupName, err)
    }
    if len(groups.AutoScalingGroups) == 0 {
        return nil, fmt.Errorf("asg: group %q: %w", d.opts.GroupName, discovery.ErrNoInstances)
    }
    var ids []string
    for _, gi := range groups.AutoScalingGroups[0].Instances {
        if id := aws.ToString(gi.InstanceId); id != "" {
            ids = append(ids, id)
        }
    }
    if len(ids) == 0 {
        return nil, fmt.Errorf("asg: group %q has no instances: %w", d.opts.GroupName, discovery.ErrNoInstances)
    }
    res, err := d.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
    if err != nil {
        return nil, fmt.Errorf("asg: describe instances: %w", err)
    }
    var out []discovery.Instance
    for _, r := range res.Reservations {
        for _, in := range r.Instances {
            if in.State == nil || in.State.Name != ec2types.InstanceStateNameRunning {
                continue
            }
            if in.LaunchTime == nil {
                continue
            }
            out = append(out, discovery.Instance{
                ID:              aws.ToString(in.InstanceId),
                LaunchTime:      *in.LaunchTime,
                PrivateHostname: aws.ToString(in.PrivateDnsName),
                PublicHostname:  aws.ToString(in.PublicDnsName),
            })
        }
    }
    if len(out) == 0 {
        return nil, fmt.Errorf("asg: group %q has no running instances: %w", d.opts.GroupName, discovery.ErrNoInstances)
    }
    sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
    return out, nil
}

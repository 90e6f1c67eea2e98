package asg

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/aws/aws-sdk-go-v2/aws"
    "github.com/aws/aws-sdk-go-v2/service/autoscaling"
    asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
    "github.com/aws/aws-sdk-go-v2/service/ec2"
    ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

    "github.com/fleetware/couchrally/pkg/discovery"
)

type fakeASG struct {
    groups []asgtypes.AutoScalingGroup
    err    error
}

func (f *fakeASG) DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, opts ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
    if f.err != nil { return nil, f.err }
    return &autoscaling.DescribeAutoScalingGroupsOutput{AutoScalingGroups: f.groups}, nil
}

type fakeEC2 struct {
    reservations []ec2types.Reservation
    err          error
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
    if f.err != nil { return nil, f.err }
    return &ec2.DescribeInstancesOutput{Reservations: f.reservations}, nil
}

func runningInstance(id, privDNS, pubDNS string, launch time.Time) ec2types.Instance {
    return ec2types.Instance{
        InstanceId:     aws.String(id),
        LaunchTime:     aws.Time(launch),
        PrivateDnsName: aws.String(privDNS),
        PublicDnsName:  aws.String(pubDNS),
        State:          &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
    }
}

func TestInstances_FiltersNonRunning(t *testing.T) {
    launch := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
    terminated := ec2types.Instance{
        InstanceId: aws.String("i-dead"),
        LaunchTime: aws.Time(launch),
        State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameTerminated},
    }
    d := &impl{
        opts: Options{GroupName: "cb-fleet"},
        asg: &fakeASG{groups: []asgtypes.AutoScalingGroup{{
            Instances: []asgtypes.Instance{{InstanceId: aws.String("i-1")}, {InstanceId: aws.String("i-dead")}},
        }}},
        ec2: &fakeEC2{reservations: []ec2types.Reservation{{
            Instances: []ec2types.Instance{runningInstance("i-1", "ip-10-0-0-1.ec2.internal", "ec2-1.compute.amazonaws.com", launch), terminated},
        }}},
    }
    got, err := d.Instances(context.Background())
    if err != nil { t.Fatalf("instances: %v", err) }
    if len(got) != 1 || got[0].ID != "i-1" {
        t.Fatalf("unexpected instances: %#v", got)
    }
    if got[0].PrivateHostname != "ip-10-0-0-1.ec2.internal" || got[0].PublicHostname != "ec2-1.compute.amazonaws.com" {
        t.Fatalf("hostnames not mapped: %#v", got[0])
    }
    if !got[0].LaunchTime.Equal(launch) {
        t.Fatalf("launch time: got %v want %v", got[0].LaunchTime, launch)
    }
}

func TestInstances_EmptyGroupIsLookupError(t *testing.T) {
    d := &impl{
        opts: Options{GroupName: "cb-fleet"},
        asg:  &fakeASG{groups: []asgtypes.AutoScalingGroup{{}}},
        ec2:  &fakeEC2{},
    }
    if _, err := d.Instances(context.Background()); !errors.Is(err, discovery.ErrNoInstances) {
        t.Fatalf("expected ErrNoInstances, got %v", err)
    }
}

func TestInstances_MissingGroupIsLookupError(t *testing.T) {
    d := &impl{
        opts: Options{GroupName: "ghost"},
        asg:  &fakeASG{},
        ec2:  &fakeEC2{},
    }
    if _, err := d.Instances(context.Background()); !errors.Is(err, discovery.ErrNoInstances) {
        t.Fatalf("expected ErrNoInstances, got %v", err)
    }
}

package asg

import (
    "context"
    "fmt"
    "io"
    "strings"

    awsconfig "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// LocalIdentity describes the instance this process runs on, as reported by
// the EC2 instance metadata service.
type LocalIdentity struct {
    InstanceID      string
    Region          string
    PrivateHostname string
    PublicHostname  string
}

type imdsAPI interface {
    GetInstanceIdentityDocument(ctx context.Context, in *imds.GetInstanceIdentityDocumentInput, opts ...func(*imds.Options)) (*imds.GetInstanceIdentityDocumentOutput, error)
    GetMetadata(ctx context.Context, in *imds.GetMetadataInput, opts ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// LookupLocalIdentity queries IMDS for this instance's id, region and
// hostnames. The public hostname path 404s on instances without a public
// address; that is reported as an empty PublicHostname, not an error.
func LookupLocalIdentity(ctx context.Context) (LocalIdentity, error) {
    cfg, err := awsconfig.LoadDefaultConfig(ctx)
    if err != nil {
        return LocalIdentity{}, fmt.Errorf("asg: load aws config: %w", err)
    }
    return lookupLocalIdentity(ctx, imds.NewFromConfig(cfg))
}

func lookupLocalIdentity(ctx context.Context, client imdsAPI) (LocalIdentity, error) {
    doc, err := client.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
    if err != nil {
        return LocalIdentity{}, fmt.Errorf("asg: instance identity document: %w", err)
    }
    id := LocalIdentity{
        InstanceID: doc.InstanceID,
        Region:     doc.Region,
    }
    if h, err := metadataString(ctx, client, "local-hostname"); err == nil {
        id.PrivateHostname = h
    } else {
        return LocalIdentity{}, err
    }
    // Best effort: absent on private-only instances.
    if h, err := metadataString(ctx, client, "public-hostname"); err == nil {
        id.PublicHostname = h
    }
    return id, nil
}

func metadataString(ctx context.Context, client imdsAPI, path string) (string, error) {
    out, err := client.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
    if err != nil {
        return "", fmt.Errorf("asg: metadata %s: %w", path, err)
    }
    defer out.Content.Close()
    b, err := io.ReadAll(out.Content)
    if err != nil {
        return "", fmt.Errorf("asg: read metadata %s: %w", path, err)
    }
    return strings.TrimSpace(string(b)), nil
}

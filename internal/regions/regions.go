package regions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfigv2 "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// Region is one entry of the region catalog served to the client.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// EC2API is the slice of the EC2 API the catalog uses.
type EC2API interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// ClientFactory builds the EC2 client used for region discovery.
type ClientFactory func(ctx context.Context) (EC2API, error)

func defaultClientFactory(ctx context.Context) (EC2API, error) {
	cfg, err := awsconfigv2.LoadDefaultConfig(ctx, awsconfigv2.WithRegion("us-east-1"))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ec2.NewFromConfig(cfg), nil
}

// Catalog lists enabled regions, fetched once and cached for the
// process lifetime; the region set changes rarely enough that a
// restart is an acceptable refresh.
type Catalog struct {
	NewClient ClientFactory
	mu        sync.Mutex
	cached    []Region
}

func NewCatalog() *Catalog {
	return &Catalog{NewClient: defaultClientFactory}
}

// Regions returns the sorted region catalog.
func (c *Catalog) Regions(ctx context.Context) ([]Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil {
		return c.cached, nil
	}

	client, err := c.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	regions := make([]Region, 0, len(out.Regions))
	for _, r := range out.Regions {
		code := aws.ToString(r.RegionName)
		if code == "" {
			continue
		}
		regions = append(regions, Region{Code: code, Name: code})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Code < regions[j].Code })

	c.cached = regions
	return regions, nil
}

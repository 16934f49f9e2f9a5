package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tmdb-finder-cli/model"
	"tmdb-finder-cli/service"
	"tmdb-finder-cli/store"
)

func newWishlistCmd(s *session) *cobra.Command {
	var (
		sortBy string
		desc   bool
	)
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "List the movies in your wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := store.WishlistSort(sortBy)
			switch key {
			case store.WishlistByAdded, store.WishlistByTitle, store.WishlistByRating, store.WishlistByReleaseDate:
			default:
				return fmt.Errorf("unknown wishlist sort %q", sortBy)
			}
			renderWishlist(cmd.OutOrStdout(), s.app.wishlist.Sorted(key, desc))
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", string(store.WishlistByAdded), "added, title, rating or release_date")
	cmd.Flags().BoolVar(&desc, "desc", false, "reverse the order")

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <movie-id>",
		Short: "Add a movie to the wishlist, or remove it when already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			a := s.app
			item, ok := wishlistItem(a, id)
			if !ok {
				detail, err := a.client.Detail(cmd.Context(), id)
				if service.IsNotFound(err) {
					return fmt.Errorf("movie %d not found", id)
				}
				if err != nil {
					return err
				}
				item = model.NewCatalogItem(detail.Raw(), a.client.ImageBaseURL())
			}
			if a.wishlist.Toggle(item) {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to your wishlist.\n", item.Title)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from your wishlist.\n", item.Title)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <movie-id>",
		Short: "Remove a movie from the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			if !s.app.wishlist.Remove(id) {
				return fmt.Errorf("movie %d is not in your wishlist", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d from your wishlist.\n", id)
			return nil
		},
	})
	return cmd
}

// wishlistItem returns the stored copy so removing never needs the network.
func wishlistItem(a *app, id int) (model.CatalogItem, bool) {
	for _, entry := range a.wishlist.All() {
		if entry.ID == id {
			return entry.CatalogItem, true
		}
	}
	return model.CatalogItem{}, false
}

func parseMovieID(value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", value)
	}
	return id, nil
}
